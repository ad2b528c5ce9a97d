package order

// Item is a line of an Order. Its total is quantity times unit price plus
// its own non-neutral adjustments, floored at zero.
//
// The owning order does not observe changes to an item's total. After
// changing the quantity, unit price or adjustments of an item that is
// already in an order, call Order.RecalculateItemsTotal.
type Item struct {
	adjustments

	id          string
	order       *Order
	productID   string
	productName string
	quantity    int
	unitPrice   int64
	total       int64
}

var _ Adjustable = (*Item)(nil)

// NewItem creates a detached item. A negative quantity is treated as zero.
func NewItem(productID, productName string, quantity int, unitPrice int64) *Item {
	it := &Item{
		productID:   productID,
		productName: productName,
		quantity:    max(quantity, 0),
		unitPrice:   unitPrice,
	}
	it.bind(it, it.recalculateTotal)
	it.recalculateTotal()
	return it
}

// ID returns the identifier assigned by the store, or "" if unsaved.
func (it *Item) ID() string { return it.id }

// SetID assigns the identifier once; later calls are ignored.
func (it *Item) SetID(id string) {
	if it.id == "" {
		it.id = id
	}
}

// Order returns the owning order, or nil when the item is detached.
func (it *Item) Order() *Order { return it.order }

func (it *Item) ProductID() string   { return it.productID }
func (it *Item) ProductName() string { return it.productName }
func (it *Item) Quantity() int       { return it.quantity }
func (it *Item) UnitPrice() int64    { return it.unitPrice }
func (it *Item) Total() int64        { return it.total }

// SetQuantity updates the quantity and the item's own total.
func (it *Item) SetQuantity(quantity int) {
	it.quantity = max(quantity, 0)
	it.recalculateTotal()
}

// SetUnitPrice updates the unit price and the item's own total.
func (it *Item) SetUnitPrice(price int64) {
	it.unitPrice = price
	it.recalculateTotal()
}

// Subtotal is quantity times unit price, before adjustments.
func (it *Item) Subtotal() int64 {
	return int64(it.quantity) * it.unitPrice
}

// AdjustmentsRecursively returns the item's adjustments. Items have no
// children, so this is the same set as Adjustments.
func (it *Item) AdjustmentsRecursively(typ string) []*Adjustment {
	return it.Adjustments(typ)
}

// AdjustmentsTotalRecursively sums the non-neutral amounts of
// AdjustmentsRecursively. It is never cached.
func (it *Item) AdjustmentsTotalRecursively(typ string) int64 {
	return sumNonNeutral(it.AdjustmentsRecursively(typ))
}

// RemoveAdjustmentsRecursively removes matching unlocked adjustments.
func (it *Item) RemoveAdjustmentsRecursively(typ string) {
	it.RemoveAdjustments(typ)
}

func (it *Item) recalculateTotal() {
	it.total = max(it.Subtotal()+it.adjustments.total, 0)
}
