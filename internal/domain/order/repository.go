package order

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no order exists for the given ID.
	ErrNotFound = errors.New("order not found")
	// ErrVersionConflict is returned by Save when the stored order changed
	// since it was loaded.
	ErrVersionConflict = errors.New("order version conflict")
)

// Repository loads and saves whole order graphs.
type Repository interface {
	// Get loads the order with its items and adjustments.
	Get(ctx context.Context, id string) (*Order, error)
	// Save persists the whole graph atomically. A new order, item or
	// adjustment gets its identifier assigned here. On success the order's
	// version is incremented; a stale version yields ErrVersionConflict.
	Save(ctx context.Context, o *Order) error
	// NextNumber reserves the next human-readable order number.
	NextNumber(ctx context.Context) (string, error)
}

// AssignIDs gives every unsaved part of the graph an identifier from next.
// It reports whether the order itself was new. undo clears exactly the
// identifiers it assigned, for stores whose write failed afterwards.
func AssignIDs(o *Order, next func() string) (created bool, undo func()) {
	var cleared []*string
	assign := func(id *string) {
		if *id == "" {
			*id = next()
			cleared = append(cleared, id)
		}
	}

	created = o.id == ""
	assign(&o.id)
	for _, it := range o.items {
		assign(&it.id)
	}
	for _, a := range o.AdjustmentsRecursively("") {
		assign(&a.id)
	}
	return created, func() {
		for _, id := range cleared {
			*id = ""
		}
	}
}
