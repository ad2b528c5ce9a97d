// Package order implements the order aggregate: an order with its items
// and the adjustments attached to either, plus the cached totals that must
// stay consistent with them.
//
// The aggregate is a plain in-memory object with no internal locking.
// Exactly one writer may use an Order at a time; callers serialize access
// and handle persistence around it.
package order

import (
	"slices"
	"time"
)

// State is the lifecycle state of an order. The aggregate stores any value;
// legal transitions are decided outside of it.
type State string

const (
	StateCart      State = "cart"
	StateNew       State = "new"
	StateCancelled State = "cancelled"
	StateFulfilled State = "fulfilled"
)

// Order is the aggregate root.
//
// Cached totals hold after every method returns:
//
//	ItemsTotal()         == Σ item.Total()
//	AdjustmentsTotal("") == Σ amount of non-neutral order-level adjustments
//	Total()              == max(0, ItemsTotal() + AdjustmentsTotal(""))
type Order struct {
	adjustments

	id                  string
	state               State
	number              string
	notes               string
	checkoutCompletedAt *time.Time
	version             int64

	items      []*Item
	itemsTotal int64
	total      int64

	now func() time.Time
}

var _ Adjustable = (*Order)(nil)

// New creates an empty order in the cart state.
func New() *Order {
	o := &Order{
		state: StateCart,
		now:   time.Now,
	}
	o.bind(o, o.recalculateTotal)
	return o
}

// ID returns the identifier assigned by the store, or "" if unsaved.
func (o *Order) ID() string { return o.id }

// SetID assigns the identifier once; later calls are ignored.
func (o *Order) SetID(id string) {
	if o.id == "" {
		o.id = id
	}
}

// Version is the optimistic concurrency counter maintained by the store.
func (o *Order) Version() int64 { return o.version }

// SetVersion is used by stores after a successful save.
func (o *Order) SetVersion(v int64) { o.version = v }

func (o *Order) State() State            { return o.state }
func (o *Order) SetState(state State)    { o.state = state }
func (o *Order) Number() string          { return o.number }
func (o *Order) SetNumber(number string) { o.number = number }
func (o *Order) Notes() string           { return o.notes }
func (o *Order) SetNotes(notes string)   { o.notes = notes }

// CheckoutCompletedAt returns when checkout completed, or nil.
func (o *Order) CheckoutCompletedAt() *time.Time {
	if o.checkoutCompletedAt == nil {
		return nil
	}
	t := *o.checkoutCompletedAt
	return &t
}

// SetCheckoutCompletedAt overwrites the completion timestamp; nil clears it.
func (o *Order) SetCheckoutCompletedAt(t *time.Time) {
	if t == nil {
		o.checkoutCompletedAt = nil
		return
	}
	v := *t
	o.checkoutCompletedAt = &v
}

// IsCheckoutCompleted reports whether a completion timestamp is set.
func (o *Order) IsCheckoutCompleted() bool {
	return o.checkoutCompletedAt != nil
}

// CompleteCheckout stamps the current time. Calling it again overwrites the
// timestamp. The state is left untouched.
func (o *Order) CompleteCheckout() {
	t := o.now()
	o.checkoutCompletedAt = &t
}

// Items returns the order's items in insertion order. The slice is a copy.
func (o *Order) Items() []*Item {
	return slices.Clone(o.items)
}

// Item finds an item by its identifier.
func (o *Order) Item(id string) (*Item, bool) {
	for _, it := range o.items {
		if it.id != "" && it.id == id {
			return it, true
		}
	}
	return nil, false
}

// ItemForProduct returns the first item referencing productID.
func (o *Order) ItemForProduct(productID string) (*Item, bool) {
	for _, it := range o.items {
		if it.productID == productID {
			return it, true
		}
	}
	return nil, false
}

func (o *Order) CountItems() int { return len(o.items) }
func (o *Order) IsEmpty() bool   { return len(o.items) == 0 }

// HasItem reports whether this exact item instance belongs to the order.
func (o *Order) HasItem(it *Item) bool {
	return slices.Contains(o.items, it)
}

// AddItem appends the item unless it is already present.
func (o *Order) AddItem(it *Item) {
	if it == nil || o.HasItem(it) {
		return
	}
	if prev := it.order; prev != nil {
		prev.RemoveItem(it)
	}

	o.itemsTotal += it.total
	o.items = append(o.items, it)
	it.order = o

	o.recalculateTotal()
}

// RemoveItem detaches the item. Absent items are ignored.
func (o *Order) RemoveItem(it *Item) {
	i := slices.Index(o.items, it)
	if i < 0 {
		return
	}

	o.items = slices.Delete(o.items, i, i+1)
	o.itemsTotal -= it.total
	o.recalculateTotal()
	it.order = nil
}

// ClearItems detaches every item and resets the items total.
func (o *Order) ClearItems() {
	for _, it := range o.items {
		it.order = nil
	}
	o.items = nil

	o.RecalculateItemsTotal()
}

// ItemsTotal returns the cached sum of item totals.
func (o *Order) ItemsTotal() int64 { return o.itemsTotal }

// RecalculateItemsTotal resums every item's total. Call it after an item
// already in the order changed its own total.
func (o *Order) RecalculateItemsTotal() {
	var sum int64
	for _, it := range o.items {
		sum += it.total
	}
	o.itemsTotal = sum

	o.recalculateTotal()
}

// Total returns the cached grand total, never negative.
func (o *Order) Total() int64 { return o.total }

// TotalQuantity sums item quantities on demand.
func (o *Order) TotalQuantity() int {
	var qty int
	for _, it := range o.items {
		qty += it.quantity
	}
	return qty
}

// AdjustmentsRecursively returns order-level adjustments followed by the
// adjustments of every item, in item order. The result is freshly built.
func (o *Order) AdjustmentsRecursively(typ string) []*Adjustment {
	out := o.Adjustments(typ)
	for _, it := range o.items {
		out = append(out, it.AdjustmentsRecursively(typ)...)
	}
	return out
}

// AdjustmentsTotalRecursively sums non-neutral amounts over
// AdjustmentsRecursively. It is always recomputed.
func (o *Order) AdjustmentsTotalRecursively(typ string) int64 {
	return sumNonNeutral(o.AdjustmentsRecursively(typ))
}

// RemoveAdjustmentsRecursively removes matching unlocked adjustments from
// the order and then from each item.
//
// Item totals change as a result; the items total is resummed so the
// order's cached totals keep matching its items.
func (o *Order) RemoveAdjustmentsRecursively(typ string) {
	o.RemoveAdjustments(typ)
	for _, it := range o.items {
		it.RemoveAdjustmentsRecursively(typ)
	}
	o.RecalculateItemsTotal()
}

func (o *Order) recalculateTotal() {
	o.total = max(o.itemsTotal+o.adjustments.total, 0)
}
