package order

// Well-known adjustment types.
const (
	AdjustmentTax       = "tax"
	AdjustmentPromotion = "promotion"
	AdjustmentShipping  = "shipping"
)

// Adjustment is a signed monetary modifier attached to an Order or an Item.
//
// Neutral adjustments are informational and never contribute to totals.
// Locked adjustments survive RemoveAdjustment and every bulk removal.
type Adjustment struct {
	id         string
	typ        string
	label      string
	originCode string
	amount     int64
	neutral    bool
	locked     bool

	adjustable Adjustable
}

// NewAdjustment creates a detached, unlocked, non-neutral adjustment.
func NewAdjustment(typ, label string, amount int64) *Adjustment {
	return &Adjustment{
		typ:    typ,
		label:  label,
		amount: amount,
	}
}

// ID returns the identifier assigned by the store, or "" if unsaved.
func (a *Adjustment) ID() string { return a.id }

// SetID assigns the identifier once; later calls are ignored.
func (a *Adjustment) SetID(id string) {
	if a.id == "" {
		a.id = id
	}
}

func (a *Adjustment) Type() string       { return a.typ }
func (a *Adjustment) Label() string      { return a.label }
func (a *Adjustment) OriginCode() string { return a.originCode }
func (a *Adjustment) Amount() int64      { return a.amount }
func (a *Adjustment) IsNeutral() bool    { return a.neutral }
func (a *Adjustment) IsLocked() bool     { return a.locked }

// SetLabel sets the display label.
func (a *Adjustment) SetLabel(label string) { a.label = label }

// SetOriginCode records what produced the adjustment, e.g. a coupon code.
func (a *Adjustment) SetOriginCode(code string) { a.originCode = code }

// Adjustable returns the current owner, or nil when detached.
func (a *Adjustment) Adjustable() Adjustable { return a.adjustable }

// SetAmount changes the amount. An attached adjustment makes its owner
// recompute the cached adjustments total.
func (a *Adjustment) SetAmount(amount int64) {
	if a.amount == amount {
		return
	}
	a.amount = amount
	if a.adjustable != nil {
		a.adjustable.RecalculateAdjustmentsTotal()
	}
}

// SetNeutral toggles the neutral flag, keeping the owner's totals in sync.
func (a *Adjustment) SetNeutral(neutral bool) {
	if a.neutral == neutral {
		return
	}
	a.neutral = neutral
	if a.adjustable != nil {
		a.adjustable.RecalculateAdjustmentsTotal()
	}
}

// Lock protects the adjustment from removal.
func (a *Adjustment) Lock() { a.locked = true }

// Unlock makes the adjustment removable again.
func (a *Adjustment) Unlock() { a.locked = false }
