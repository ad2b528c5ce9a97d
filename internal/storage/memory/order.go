// Package memory provides in-process implementations of the storage
// interfaces, used by tests and single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/xenking/kart-orders/internal/domain/order"
)

// OrderRepository stores order snapshots in a map.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Snapshot
	number uint64
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository creates an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]order.Snapshot)}
}

// Get restores the stored order graph.
func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return order.Restore(s), nil
}

// Save stores the order graph if its version matches the stored one.
func (r *OrderRepository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.ID() != "" {
		stored, ok := r.orders[o.ID()]
		if !ok {
			return order.ErrNotFound
		}
		if stored.Version != o.Version() {
			return order.ErrVersionConflict
		}
	}

	order.AssignIDs(o, uuid.NewString)
	s := o.Snapshot()
	s.Version++
	r.orders[o.ID()] = s
	o.SetVersion(s.Version)
	return nil
}

// NextNumber returns sequential zero-padded numbers starting at 000000001.
func (r *OrderRepository) NextNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.number++
	return fmt.Sprintf("%09d", r.number), nil
}
