package order

import "time"

// Snapshot is the full public state of an order graph, used by stores to
// read and write the aggregate without reaching into it.
type Snapshot struct {
	ID                  string
	State               State
	Number              string
	Notes               string
	CheckoutCompletedAt *time.Time
	Version             int64

	ItemsTotal       int64
	AdjustmentsTotal int64
	Total            int64

	Items       []ItemSnapshot
	Adjustments []AdjustmentSnapshot
}

// ItemSnapshot is the stored form of an Item.
type ItemSnapshot struct {
	ID               string
	ProductID        string
	ProductName      string
	Quantity         int
	UnitPrice        int64
	AdjustmentsTotal int64
	Total            int64

	Adjustments []AdjustmentSnapshot
}

// AdjustmentSnapshot is the stored form of an Adjustment.
type AdjustmentSnapshot struct {
	ID         string
	Type       string
	Label      string
	OriginCode string
	Amount     int64
	Neutral    bool
	Locked     bool
}

// Snapshot reads out the current state of the order graph.
func (o *Order) Snapshot() Snapshot {
	s := Snapshot{
		ID:                  o.id,
		State:               o.state,
		Number:              o.number,
		Notes:               o.notes,
		CheckoutCompletedAt: o.CheckoutCompletedAt(),
		Version:             o.version,
		ItemsTotal:          o.itemsTotal,
		AdjustmentsTotal:    o.adjustments.total,
		Total:               o.total,
		Items:               make([]ItemSnapshot, len(o.items)),
		Adjustments:         snapshotAdjustments(o.list),
	}
	for i, it := range o.items {
		s.Items[i] = ItemSnapshot{
			ID:               it.id,
			ProductID:        it.productID,
			ProductName:      it.productName,
			Quantity:         it.quantity,
			UnitPrice:        it.unitPrice,
			AdjustmentsTotal: it.adjustments.total,
			Total:            it.total,
			Adjustments:      snapshotAdjustments(it.list),
		}
	}
	return s
}

// Restore rebuilds an order graph from a snapshot. Collections are filled
// directly and every cached total is then recomputed from them, so stored
// totals in the snapshot are not trusted.
func Restore(s Snapshot) *Order {
	o := New()
	o.id = s.ID
	o.state = s.State
	o.number = s.Number
	o.notes = s.Notes
	o.version = s.Version
	o.SetCheckoutCompletedAt(s.CheckoutCompletedAt)

	o.list = restoreAdjustments(s.Adjustments, o)
	for _, is := range s.Items {
		it := NewItem(is.ProductID, is.ProductName, is.Quantity, is.UnitPrice)
		it.id = is.ID
		it.order = o
		it.list = restoreAdjustments(is.Adjustments, it)
		it.RecalculateAdjustmentsTotal()
		o.items = append(o.items, it)
	}

	o.RecalculateItemsTotal()
	o.RecalculateAdjustmentsTotal()
	return o
}

func snapshotAdjustments(list []*Adjustment) []AdjustmentSnapshot {
	out := make([]AdjustmentSnapshot, len(list))
	for i, a := range list {
		out[i] = AdjustmentSnapshot{
			ID:         a.id,
			Type:       a.typ,
			Label:      a.label,
			OriginCode: a.originCode,
			Amount:     a.amount,
			Neutral:    a.neutral,
			Locked:     a.locked,
		}
	}
	return out
}

func restoreAdjustments(in []AdjustmentSnapshot, owner Adjustable) []*Adjustment {
	out := make([]*Adjustment, len(in))
	for i, as := range in {
		out[i] = &Adjustment{
			id:         as.ID,
			typ:        as.Type,
			label:      as.Label,
			originCode: as.OriginCode,
			amount:     as.Amount,
			neutral:    as.Neutral,
			locked:     as.Locked,
			adjustable: owner,
		}
	}
	return out
}
