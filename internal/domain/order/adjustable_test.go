package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every adjustable owner must follow the same contract.
func adjustableOwners() map[string]func() Adjustable {
	return map[string]func() Adjustable{
		"order": func() Adjustable { return New() },
		"item":  func() Adjustable { return NewItem("p1", "Widget", 1, 1000) },
	}
}

func TestAdjustable_AddAdjustment(t *testing.T) {
	for name, newOwner := range adjustableOwners() {
		t.Run(name, func(t *testing.T) {
			owner := newOwner()
			a := NewAdjustment(AdjustmentTax, "VAT", 200)

			owner.AddAdjustment(a)
			owner.AddAdjustment(a)

			assert.Equal(t, []*Adjustment{a}, owner.Adjustments(""))
			assert.Equal(t, owner, a.Adjustable())
			assert.Equal(t, int64(200), owner.AdjustmentsTotal(""))
		})
	}
}

func TestAdjustable_IdentityNotEquality(t *testing.T) {
	for name, newOwner := range adjustableOwners() {
		t.Run(name, func(t *testing.T) {
			owner := newOwner()
			a := NewAdjustment(AdjustmentTax, "VAT", 200)
			b := NewAdjustment(AdjustmentTax, "VAT", 200)

			owner.AddAdjustment(a)
			assert.False(t, owner.HasAdjustment(b))

			owner.AddAdjustment(b)
			assert.Len(t, owner.Adjustments(""), 2)
			assert.Equal(t, int64(400), owner.AdjustmentsTotal(""))
		})
	}
}

func TestAdjustable_RemoveAdjustment(t *testing.T) {
	for name, newOwner := range adjustableOwners() {
		t.Run(name, func(t *testing.T) {
			owner := newOwner()
			a := NewAdjustment(AdjustmentTax, "VAT", 200)
			b := NewAdjustment(AdjustmentShipping, "Delivery", 500)
			owner.AddAdjustment(a)
			owner.AddAdjustment(b)

			owner.RemoveAdjustment(a)

			assert.Nil(t, a.Adjustable())
			assert.False(t, owner.HasAdjustment(a))
			assert.Equal(t, int64(500), owner.AdjustmentsTotal(""))

			// Absent and nil adjustments are ignored.
			owner.RemoveAdjustment(a)
			owner.RemoveAdjustment(nil)
			assert.Equal(t, int64(500), owner.AdjustmentsTotal(""))
		})
	}
}

func TestAdjustable_FilteredQueries(t *testing.T) {
	for name, newOwner := range adjustableOwners() {
		t.Run(name, func(t *testing.T) {
			owner := newOwner()
			tax := NewAdjustment(AdjustmentTax, "VAT", 200)
			ship := NewAdjustment(AdjustmentShipping, "Delivery", 500)
			info := NewAdjustment(AdjustmentShipping, "Free over 50", -500)
			info.SetNeutral(true)
			owner.AddAdjustment(tax)
			owner.AddAdjustment(ship)
			owner.AddAdjustment(info)

			assert.Equal(t, []*Adjustment{ship, info}, owner.Adjustments(AdjustmentShipping))
			assert.Empty(t, owner.Adjustments("unknown"))
			assert.Equal(t, int64(500), owner.AdjustmentsTotal(AdjustmentShipping))
			assert.Equal(t, int64(200), owner.AdjustmentsTotal(AdjustmentTax))
			assert.Zero(t, owner.AdjustmentsTotal("unknown"))
			assert.Equal(t, int64(700), owner.AdjustmentsTotal(""))
		})
	}
}

func TestAdjustable_RemoveAdjustmentsByType(t *testing.T) {
	for name, newOwner := range adjustableOwners() {
		t.Run(name, func(t *testing.T) {
			owner := newOwner()
			tax := NewAdjustment(AdjustmentTax, "VAT", 200)
			promo := NewAdjustment(AdjustmentPromotion, "10% off", -100)
			kept := NewAdjustment(AdjustmentPromotion, "Loyalty", -50)
			kept.Lock()
			owner.AddAdjustment(tax)
			owner.AddAdjustment(promo)
			owner.AddAdjustment(kept)

			owner.RemoveAdjustments(AdjustmentPromotion)

			assert.Equal(t, []*Adjustment{tax, kept}, owner.Adjustments(""))
			assert.Equal(t, int64(150), owner.AdjustmentsTotal(""))

			owner.RemoveAdjustments("")
			assert.Equal(t, []*Adjustment{kept}, owner.Adjustments(""))
			assert.Equal(t, int64(-50), owner.AdjustmentsTotal(""))
		})
	}
}

func TestAdjustable_AdjustmentsReturnsCopy(t *testing.T) {
	owner := New()
	a := NewAdjustment(AdjustmentTax, "VAT", 200)
	owner.AddAdjustment(a)

	list := owner.Adjustments("")
	list[0] = nil

	assert.Same(t, a, owner.Adjustments("")[0])
}

func TestAdjustment_MoveBetweenOwners(t *testing.T) {
	o := New()
	it := NewItem("p1", "Widget", 1, 1000)
	a := NewAdjustment(AdjustmentPromotion, "promo", -100)

	o.AddAdjustment(a)
	it.AddAdjustment(a)

	assert.False(t, o.HasAdjustment(a))
	assert.True(t, it.HasAdjustment(a))
	assert.Equal(t, Adjustable(it), a.Adjustable())
	assert.Zero(t, o.AdjustmentsTotal(""))
	assert.Equal(t, int64(900), it.Total())
}

func TestAdjustment_MoveFromItemToItsOrder(t *testing.T) {
	o := New()
	it := NewItem("p1", "Widget", 1, 1000)
	a := NewAdjustment(AdjustmentPromotion, "promo", -200)
	it.AddAdjustment(a)
	o.AddItem(it)
	require.Equal(t, int64(800), o.ItemsTotal())

	o.AddAdjustment(a)

	assert.True(t, o.HasAdjustment(a))
	assert.False(t, it.HasAdjustment(a))
	assert.Equal(t, int64(1000), it.Total())
	assert.Equal(t, int64(1000), o.ItemsTotal())
	assert.Equal(t, int64(-200), o.AdjustmentsTotal(""))
	assert.Equal(t, int64(800), o.Total())
}

func TestAdjustment_MoveFromItemToOtherOrder(t *testing.T) {
	src, dst := New(), New()
	it := NewItem("p1", "Widget", 2, 500)
	a := NewAdjustment(AdjustmentPromotion, "promo", -300)
	it.AddAdjustment(a)
	src.AddItem(it)
	require.Equal(t, int64(700), src.Total())

	dst.AddAdjustment(a)

	assert.Equal(t, int64(1000), src.ItemsTotal())
	assert.Equal(t, int64(1000), src.Total())
	assert.Equal(t, int64(-300), dst.AdjustmentsTotal(""))
	assert.Zero(t, dst.Total())
}

func TestAdjustment_LockedCannotMove(t *testing.T) {
	o := New()
	it := NewItem("p1", "Widget", 1, 1000)
	a := NewAdjustment(AdjustmentPromotion, "promo", -100)
	a.Lock()

	o.AddAdjustment(a)
	it.AddAdjustment(a)

	assert.True(t, o.HasAdjustment(a))
	assert.False(t, it.HasAdjustment(a))
	assert.Equal(t, Adjustable(o), a.Adjustable())
}

func TestAdjustment_SetAmountKeepsOwnerInSync(t *testing.T) {
	o := New()
	o.AddItem(NewItem("p1", "Widget", 1, 1000))
	a := NewAdjustment(AdjustmentShipping, "Delivery", 500)
	o.AddAdjustment(a)
	require.Equal(t, int64(1500), o.Total())

	a.SetAmount(300)
	assert.Equal(t, int64(300), o.AdjustmentsTotal(""))
	assert.Equal(t, int64(1300), o.Total())

	a.SetNeutral(true)
	assert.Zero(t, o.AdjustmentsTotal(""))
	assert.Equal(t, int64(1000), o.Total())

	a.SetNeutral(false)
	assert.Equal(t, int64(1300), o.Total())
}

func TestAdjustment_SetAmountDetached(t *testing.T) {
	a := NewAdjustment(AdjustmentTax, "VAT", 100)
	a.SetAmount(150)
	a.SetNeutral(true)

	assert.Equal(t, int64(150), a.Amount())
	assert.True(t, a.IsNeutral())
	assert.Nil(t, a.Adjustable())
}

func TestAdjustment_LockUnlock(t *testing.T) {
	o := New()
	a := NewAdjustment(AdjustmentPromotion, "promo", -100)
	a.Lock()
	o.AddAdjustment(a)

	o.RemoveAdjustment(a)
	require.True(t, o.HasAdjustment(a))

	a.Unlock()
	o.RemoveAdjustment(a)
	assert.False(t, o.HasAdjustment(a))
	assert.Zero(t, o.AdjustmentsTotal(""))
}

func TestRecalculateAdjustmentsTotal(t *testing.T) {
	o := New()
	o.AddItem(NewItem("p1", "Widget", 1, 1000))
	a := NewAdjustment(AdjustmentTax, "VAT", 200)
	o.AddAdjustment(a)

	// Simulate a bulk load that bypassed AddAdjustment.
	b := NewAdjustment(AdjustmentTax, "Levy", 50)
	b.adjustable = o
	o.list = append(o.list, b)
	require.Equal(t, int64(200), o.AdjustmentsTotal(""))

	o.RecalculateAdjustmentsTotal()
	assert.Equal(t, int64(250), o.AdjustmentsTotal(""))
	assert.Equal(t, int64(1250), o.Total())
}
