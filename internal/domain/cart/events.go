package cart

import (
	"context"
	"time"

	"github.com/xenking/kart-orders/internal/domain/order"
)

// Event types published by the service.
const (
	EventCheckoutCompleted = "order.checkout_completed"
	EventStateChanged      = "order.state_changed"
)

// Event is a notification about an order that other systems may consume.
type Event struct {
	ID         string
	Type       string
	OccurredAt time.Time
	// PreviousState is set for state changes.
	PreviousState order.State
	Order         order.Snapshot
}

// Publisher delivers events. Delivery happens after the order is saved, so
// a failed publish never rolls the order back.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Locker serializes writers of the same order across processes.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned function
	// releases the lock.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }
