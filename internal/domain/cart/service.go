// Package cart implements the shopping cart use cases on top of the order
// aggregate: every mutation runs under a per-order lock, reprices the order
// and saves it with an optimistic version check.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
	"github.com/xenking/kart-orders/internal/pricing"
	"github.com/xenking/kart-orders/internal/workflow"
)

const instrumentationName = "github.com/xenking/kart-orders/internal/domain/cart"

// AdjustmentInput describes a manually added adjustment. An empty ItemID
// targets the order itself.
type AdjustmentInput struct {
	ItemID  string
	Type    string
	Label   string
	Amount  int64
	Neutral bool
	Locked  bool
}

// Option configures a Service.
type Option func(*Service)

// WithLocker sets the per-order lock used around mutations.
func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for business counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(instrumentationName) }
}

// Service encapsulates cart and checkout business logic.
type Service struct {
	orders   order.Repository
	products product.Repository
	pricing  *pricing.Calculator
	locker   Locker
	events   Publisher
	tracer   trace.Tracer
	meter    metric.Meter

	cartsCreated       metric.Int64Counter
	itemsAdded         metric.Int64Counter
	checkoutsCompleted metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// NewService creates a cart Service with the required domain dependencies.
func NewService(
	orders order.Repository,
	products product.Repository,
	calc *pricing.Calculator,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		orders:   orders,
		products: products,
		pricing:  calc,
		locker:   nopLocker{},
		events:   nopPublisher{},
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.cartsCreated, err = s.meter.Int64Counter("kart.carts.created",
		metric.WithDescription("Number of carts created"),
	); err != nil {
		return nil, errors.Wrap(err, "carts created counter")
	}
	if s.itemsAdded, err = s.meter.Int64Counter("kart.cart.items.added",
		metric.WithDescription("Number of units added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "items added counter")
	}
	if s.checkoutsCompleted, err = s.meter.Int64Counter("kart.checkouts.completed",
		metric.WithDescription("Number of completed checkouts"),
	); err != nil {
		return nil, errors.Wrap(err, "checkouts completed counter")
	}

	return s, nil
}

// Create starts a new empty cart.
func (s *Service) Create(ctx context.Context) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "cart.Create")
	defer span.End()

	o := order.New()
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, s.fail(span, errors.Wrap(err, "save order"))
	}
	s.cartsCreated.Add(ctx, 1)
	zctx.From(ctx).Debug("Cart created", zap.String("order_id", o.ID()))
	return o, nil
}

// Get loads an order.
func (s *Service) Get(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// AddItem adds quantity units of a product. A product already in the cart
// has its line quantity increased instead of getting a second line.
func (s *Service) AddItem(ctx context.Context, orderID, productID string, quantity int) (*order.Order, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, errors.Wrap(err, "get product")
	}

	o, err := s.mutate(ctx, "AddItem", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		if it, ok := o.ItemForProduct(p.ID); ok {
			it.SetQuantity(it.Quantity() + quantity)
		} else {
			o.AddItem(s.pricing.NewItem(*p, quantity))
		}
		return s.reprice(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.itemsAdded.Add(ctx, int64(quantity), metric.WithAttributes(attribute.String("product.id", p.ID)))
	return o, nil
}

// UpdateQuantity sets the quantity of an item. Zero removes the item.
func (s *Service) UpdateQuantity(ctx context.Context, orderID, itemID string, quantity int) (*order.Order, error) {
	return s.mutate(ctx, "UpdateQuantity", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		it, ok := o.Item(itemID)
		if !ok {
			return &ItemNotFoundError{ItemID: itemID}
		}
		if quantity < 0 {
			return &InvalidQuantityError{ProductID: it.ProductID(), Quantity: quantity}
		}
		if quantity == 0 {
			o.RemoveItem(it)
		} else {
			it.SetQuantity(quantity)
		}
		return s.reprice(ctx, o)
	})
}

// RemoveItem removes an item from the cart.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) (*order.Order, error) {
	return s.mutate(ctx, "RemoveItem", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		it, ok := o.Item(itemID)
		if !ok {
			return &ItemNotFoundError{ItemID: itemID}
		}
		o.RemoveItem(it)
		return s.reprice(ctx, o)
	})
}

// ApplyCoupon applies a coupon code, replacing any previous one.
func (s *Service) ApplyCoupon(ctx context.Context, orderID, code string) (*order.Order, error) {
	return s.mutate(ctx, "ApplyCoupon", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		if err := s.pricing.ApplyCoupon(ctx, o, code); err != nil {
			return errors.Wrap(err, "apply coupon")
		}
		return s.reprice(ctx, o)
	})
}

// RemoveCoupon removes the applied coupon, if any.
func (s *Service) RemoveCoupon(ctx context.Context, orderID string) (*order.Order, error) {
	return s.mutate(ctx, "RemoveCoupon", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		pricing.RemoveCoupon(o)
		return s.reprice(ctx, o)
	})
}

// AddAdjustment attaches a manual adjustment to the order or to one of its
// items.
func (s *Service) AddAdjustment(ctx context.Context, orderID string, in AdjustmentInput) (*order.Order, error) {
	if in.Type == "" {
		return nil, ErrInvalidAdjustment
	}

	return s.mutate(ctx, "AddAdjustment", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}

		a := order.NewAdjustment(in.Type, in.Label, in.Amount)
		a.SetNeutral(in.Neutral)

		var target order.Adjustable = o
		if in.ItemID != "" {
			it, ok := o.Item(in.ItemID)
			if !ok {
				return &ItemNotFoundError{ItemID: in.ItemID}
			}
			target = it
		}
		target.AddAdjustment(a)
		if in.Locked {
			a.Lock()
		}
		// A discount may cross the free shipping threshold.
		return s.reprice(ctx, o)
	})
}

// RemoveAdjustment detaches an adjustment by ID from wherever it lives in
// the order graph. Locked adjustments stay in place.
func (s *Service) RemoveAdjustment(ctx context.Context, orderID, adjustmentID string) (*order.Order, error) {
	return s.mutate(ctx, "RemoveAdjustment", orderID, func(ctx context.Context, o *order.Order) error {
		if err := ensureCart(o); err != nil {
			return err
		}
		for _, a := range o.AdjustmentsRecursively("") {
			if a.ID() != adjustmentID {
				continue
			}
			if owner := a.Adjustable(); owner != nil {
				owner.RemoveAdjustment(a)
			}
			return s.reprice(ctx, o)
		}
		return &AdjustmentNotFoundError{AdjustmentID: adjustmentID}
	})
}

// SetNotes replaces the order notes. It is allowed in every state.
func (s *Service) SetNotes(ctx context.Context, orderID, notes string) (*order.Order, error) {
	return s.mutate(ctx, "SetNotes", orderID, func(_ context.Context, o *order.Order) error {
		o.SetNotes(notes)
		return nil
	})
}

// Checkout completes the cart: it is repriced one last time, numbered,
// stamped and moved to the new state. Coupon uses are recorded and an event
// is published once the order is saved.
func (s *Service) Checkout(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.mutate(ctx, "Checkout", orderID, func(ctx context.Context, o *order.Order) error {
		if o.IsCheckoutCompleted() {
			return ErrCheckoutCompleted
		}
		if o.IsEmpty() {
			return ErrEmptyCart
		}
		if err := s.reprice(ctx, o); err != nil {
			return err
		}

		number, err := s.orders.NextNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "next order number")
		}
		if err := workflow.Apply(o, workflow.TransitionCreate); err != nil {
			return err
		}
		completedAt := s.now()
		o.SetNumber(number)
		o.SetCheckoutCompletedAt(&completedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx)
	if err := s.pricing.Redeem(ctx, o); err != nil {
		lg.Error("Redeem coupon", zap.String("order_id", o.ID()), zap.Error(err))
	}
	s.checkoutsCompleted.Add(ctx, 1)
	s.publish(ctx, Event{Type: EventCheckoutCompleted, Order: o.Snapshot()})
	lg.Info("Checkout completed",
		zap.String("order_id", o.ID()),
		zap.String("number", o.Number()),
		zap.Int64("total", o.Total()),
	)
	return o, nil
}

// Transition applies a workflow transition to a placed order.
func (s *Service) Transition(ctx context.Context, orderID string, t workflow.Transition) (*order.Order, error) {
	var prev order.State
	o, err := s.mutate(ctx, "Transition", orderID, func(_ context.Context, o *order.Order) error {
		if t == workflow.TransitionCreate {
			// Creating an order is done through checkout only.
			return &workflow.TransitionError{Transition: t, From: o.State()}
		}
		prev = o.State()
		return workflow.Apply(o, t)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, Event{Type: EventStateChanged, PreviousState: prev, Order: o.Snapshot()})
	return o, nil
}

// mutate runs fn on a freshly loaded order while holding the order lock and
// saves the result.
func (s *Service) mutate(
	ctx context.Context,
	op, orderID string,
	fn func(ctx context.Context, o *order.Order) error,
) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "cart."+op,
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer span.End()

	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, errors.Wrap(err, "lock order"))
	}
	defer unlock()

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, errors.Wrap(err, "get order"))
	}
	if err := fn(ctx, o); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, s.fail(span, errors.Wrap(err, "save order"))
	}

	span.SetAttributes(
		attribute.Int64("order.total", o.Total()),
		attribute.Int64("order.version", o.Version()),
	)
	zctx.From(ctx).Debug("Order updated",
		zap.String("op", op),
		zap.String("order_id", o.ID()),
		zap.Int64("total", o.Total()),
		zap.Int64("version", o.Version()),
	)
	return o, nil
}

func (s *Service) reprice(ctx context.Context, o *order.Order) error {
	if err := s.pricing.Reprice(ctx, o); err != nil {
		return errors.Wrap(err, "reprice")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e Event) {
	e.ID = s.newID()
	e.OccurredAt = s.now()
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Error("Publish event",
			zap.String("type", e.Type),
			zap.String("order_id", e.Order.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func ensureCart(o *order.Order) error {
	if o.IsCheckoutCompleted() || o.State() != order.StateCart {
		return ErrCheckoutCompleted
	}
	return nil
}
