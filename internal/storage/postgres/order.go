package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-orders/internal/domain/order"
)

const (
	getOrderSQL = `SELECT id, state, COALESCE(number, ''), notes, checkout_completed_at,
		items_total, adjustments_total, total, version
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, product_id, product_name, quantity, unit_price, adjustments_total, total
		FROM order_items WHERE order_id = $1 ORDER BY position`

	getOrderAdjustmentsSQL = `SELECT id, order_item_id, type, label, origin_code, amount, neutral, locked
		FROM adjustments WHERE order_id = $1 ORDER BY position`

	insertOrderSQL = `INSERT INTO orders (id, state, number, notes, checkout_completed_at,
		items_total, adjustments_total, total, version)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`

	updateOrderSQL = `UPDATE orders SET
			state = $2,
			number = NULLIF($3, ''),
			notes = $4,
			checkout_completed_at = $5,
			items_total = $6,
			adjustments_total = $7,
			total = $8,
			version = $9,
			updated_at = now()
		WHERE id = $1 AND version = $10`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	deleteOrderAdjustmentsSQL = `DELETE FROM adjustments WHERE order_id = $1`
	deleteOrderItemsSQL       = `DELETE FROM order_items WHERE order_id = $1`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, position, product_id, product_name,
		quantity, unit_price, adjustments_total, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertAdjustmentSQL = `INSERT INTO adjustments (id, order_id, order_item_id, position, type,
		label, origin_code, amount, neutral, locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	nextOrderNumberSQL = `SELECT nextval('order_number_seq')`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. An
// order graph is stored across the orders, order_items and adjustments
// tables and always rewritten as a whole.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get loads the order graph in a single read-only snapshot.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var s order.Snapshot
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		var err error
		s, err = loadSnapshot(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order.Restore(s), nil
}

// Save writes the whole order graph in one transaction. Existing orders are
// only updated when the stored version matches.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	created, undo := order.AssignIDs(o, uuid.NewString)
	s := o.Snapshot()
	next := s.Version + 1

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{
			s.ID, string(s.State), s.Number, s.Notes, s.CheckoutCompletedAt,
			s.ItemsTotal, s.AdjustmentsTotal, s.Total, next,
		}
		if created {
			if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
				return errors.Wrapf(err, "insert order %q", s.ID)
			}
		} else {
			tag, err := tx.Exec(ctx, updateOrderSQL, append(args, s.Version)...)
			if err != nil {
				return errors.Wrapf(err, "update order %q", s.ID)
			}
			if tag.RowsAffected() == 0 {
				return missingOrConflict(ctx, tx, s.ID)
			}
			if _, err := tx.Exec(ctx, deleteOrderAdjustmentsSQL, s.ID); err != nil {
				return errors.Wrap(err, "delete adjustments")
			}
			if _, err := tx.Exec(ctx, deleteOrderItemsSQL, s.ID); err != nil {
				return errors.Wrap(err, "delete items")
			}
		}

		if err := tx.SendBatch(ctx, graphBatch(s)).Close(); err != nil {
			return errors.Wrapf(err, "insert graph of order %q", s.ID)
		}
		return nil
	})
	if err != nil {
		undo()
		return err
	}

	o.SetVersion(next)
	return nil
}

// NextNumber draws from order_number_seq. Numbers are never reused, so
// gaps appear when a checkout fails after reserving one.
func (r *OrderRepository) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, nextOrderNumberSQL).Scan(&n); err != nil {
		return "", errors.Wrap(err, "next order number")
	}
	return fmt.Sprintf("%09d", n), nil
}

func loadSnapshot(ctx context.Context, tx pgx.Tx, id string) (order.Snapshot, error) {
	var (
		s     order.Snapshot
		state string
	)
	err := tx.QueryRow(ctx, getOrderSQL, id).Scan(
		&s.ID, &state, &s.Number, &s.Notes, &s.CheckoutCompletedAt,
		&s.ItemsTotal, &s.AdjustmentsTotal, &s.Total, &s.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, order.ErrNotFound
		}
		return s, errors.Wrapf(err, "get order %q", id)
	}
	s.State = order.State(state)

	rows, err := tx.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return s, errors.Wrap(err, "get order items")
	}
	s.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return s, errors.Wrap(err, "scan order items")
	}

	rows, err = tx.Query(ctx, getOrderAdjustmentsSQL, id)
	if err != nil {
		return s, errors.Wrap(err, "get adjustments")
	}
	adjustments, err := pgx.CollectRows(rows, scanAdjustment)
	if err != nil {
		return s, errors.Wrap(err, "scan adjustments")
	}

	byItem := make(map[string]int, len(s.Items))
	for i, it := range s.Items {
		byItem[it.ID] = i
	}
	for _, a := range adjustments {
		if a.itemID == nil {
			s.Adjustments = append(s.Adjustments, a.AdjustmentSnapshot)
			continue
		}
		i, ok := byItem[*a.itemID]
		if !ok {
			return s, errors.Errorf("adjustment %q references unknown item %q", a.ID, *a.itemID)
		}
		s.Items[i].Adjustments = append(s.Items[i].Adjustments, a.AdjustmentSnapshot)
	}
	return s, nil
}

func missingOrConflict(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	if err := tx.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "check order exists")
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrVersionConflict
}

// graphBatch queues the inserts of items and adjustments. An item is
// always queued before its adjustments.
func graphBatch(s order.Snapshot) *pgx.Batch {
	b := &pgx.Batch{}
	queueAdjustments(b, s.ID, nil, s.Adjustments)
	for i, it := range s.Items {
		b.Queue(insertOrderItemSQL,
			it.ID, s.ID, i, it.ProductID, it.ProductName,
			it.Quantity, it.UnitPrice, it.AdjustmentsTotal, it.Total,
		)
		queueAdjustments(b, s.ID, &it.ID, it.Adjustments)
	}
	return b
}

func queueAdjustments(b *pgx.Batch, orderID string, itemID *string, list []order.AdjustmentSnapshot) {
	for i, a := range list {
		b.Queue(insertAdjustmentSQL,
			a.ID, orderID, itemID, i, a.Type,
			a.Label, a.OriginCode, a.Amount, a.Neutral, a.Locked,
		)
	}
}

func scanItem(row pgx.CollectableRow) (order.ItemSnapshot, error) {
	var it order.ItemSnapshot
	err := row.Scan(
		&it.ID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.AdjustmentsTotal, &it.Total,
	)
	return it, err
}

type adjustmentRow struct {
	order.AdjustmentSnapshot
	itemID *string
}

func scanAdjustment(row pgx.CollectableRow) (adjustmentRow, error) {
	var a adjustmentRow
	err := row.Scan(
		&a.ID, &a.itemID, &a.Type, &a.Label,
		&a.OriginCode, &a.Amount, &a.Neutral, &a.Locked,
	)
	return a, err
}
