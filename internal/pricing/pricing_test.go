package pricing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-orders/internal/domain/coupon"
	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
)

type mockValidator struct {
	discount *coupon.Discount
	err      error
	redeemed []string
	calls    int
}

func (m *mockValidator) Validate(_ context.Context, code string, _ []coupon.Item) (*coupon.Discount, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	d := *m.discount
	d.Code = code
	return &d, nil
}

func (m *mockValidator) Redeem(_ context.Context, code string) error {
	m.redeemed = append(m.redeemed, code)
	return nil
}

func cartWith(items ...*order.Item) *order.Order {
	o := order.New()
	for _, it := range items {
		o.AddItem(it)
	}
	return o
}

func TestCalculator_NewItem(t *testing.T) {
	calc := New(&mockValidator{}, Config{Exponent: 2})
	p := product.Product{ID: "p1", Name: "Waffle", Price: decimal.RequireFromString("6.50")}

	it := calc.NewItem(p, 3)

	assert.Equal(t, "p1", it.ProductID())
	assert.Equal(t, "Waffle", it.ProductName())
	assert.Equal(t, int64(650), it.UnitPrice())
	assert.Equal(t, int64(1950), it.Total())
}

func TestCalculator_ApplyCoupon(t *testing.T) {
	v := &mockValidator{discount: &coupon.Discount{Amount: 500, Description: "$5 off"}}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 2, 1000))

	require.NoError(t, calc.ApplyCoupon(context.Background(), o, "FIVE"))

	promos := o.Adjustments(order.AdjustmentPromotion)
	require.Len(t, promos, 1)
	assert.Equal(t, int64(-500), promos[0].Amount())
	assert.Equal(t, "FIVE", promos[0].OriginCode())
	assert.Equal(t, "$5 off", promos[0].Label())
	assert.Equal(t, "FIVE", CouponCode(o))
	assert.Equal(t, int64(1500), o.Total())
}

func TestCalculator_ApplyCoupon_ReplacesPrevious(t *testing.T) {
	v := &mockValidator{discount: &coupon.Discount{Amount: 300}}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))

	require.NoError(t, calc.ApplyCoupon(context.Background(), o, "A"))
	require.NoError(t, calc.ApplyCoupon(context.Background(), o, "B"))

	promos := o.Adjustments(order.AdjustmentPromotion)
	require.Len(t, promos, 1)
	assert.Equal(t, "B", promos[0].OriginCode())
	assert.Equal(t, "B", promos[0].Label())
	assert.Equal(t, int64(700), o.Total())
}

func TestCalculator_ApplyCoupon_ZeroDiscountIsNeutral(t *testing.T) {
	v := &mockValidator{discount: &coupon.Discount{Amount: 0, Description: "nothing"}}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))

	require.NoError(t, calc.ApplyCoupon(context.Background(), o, "ZERO"))

	promos := o.Adjustments(order.AdjustmentPromotion)
	require.Len(t, promos, 1)
	assert.True(t, promos[0].IsNeutral())
	assert.Equal(t, "ZERO", CouponCode(o))
	assert.Equal(t, int64(1000), o.Total())
}

func TestCalculator_ApplyCoupon_Rejected(t *testing.T) {
	v := &mockValidator{err: coupon.ErrCouponExpired}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))

	err := calc.ApplyCoupon(context.Background(), o, "OLD")

	require.ErrorIs(t, err, coupon.ErrCouponExpired)
	assert.Empty(t, o.Adjustments(order.AdjustmentPromotion))
}

func TestCalculator_ApplyCoupon_LockedPromotion(t *testing.T) {
	v := &mockValidator{discount: &coupon.Discount{Amount: 100}}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))
	pinned := order.NewAdjustment(order.AdjustmentPromotion, "Staff", -200)
	pinned.SetOriginCode("STAFF")
	o.AddAdjustment(pinned)
	pinned.Lock()

	err := calc.ApplyCoupon(context.Background(), o, "OTHER")

	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Zero(t, v.calls)
	assert.Equal(t, "STAFF", CouponCode(o))
}

func TestRemoveCoupon_KeepsManualPromotions(t *testing.T) {
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))
	manual := order.NewAdjustment(order.AdjustmentPromotion, "Goodwill", -100)
	o.AddAdjustment(manual)
	fromCoupon := order.NewAdjustment(order.AdjustmentPromotion, "10% off", -100)
	fromCoupon.SetOriginCode("TEN")
	o.AddAdjustment(fromCoupon)

	RemoveCoupon(o)

	assert.Equal(t, []*order.Adjustment{manual}, o.Adjustments(order.AdjustmentPromotion))
	assert.Empty(t, CouponCode(o))
	assert.Equal(t, int64(900), o.Total())
}

func TestCalculator_Reprice(t *testing.T) {
	cfg := Config{Exponent: 2, ShippingFee: 499, FreeShippingOver: 5000}

	t.Run("charges shipping below threshold", func(t *testing.T) {
		calc := New(&mockValidator{}, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 2, 1000))

		require.NoError(t, calc.Reprice(context.Background(), o))

		ship := o.Adjustments(order.AdjustmentShipping)
		require.Len(t, ship, 1)
		assert.False(t, ship[0].IsNeutral())
		assert.Equal(t, int64(2499), o.Total())
	})

	t.Run("waives shipping over threshold", func(t *testing.T) {
		calc := New(&mockValidator{}, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 5, 1000))

		require.NoError(t, calc.Reprice(context.Background(), o))

		ship := o.Adjustments(order.AdjustmentShipping)
		require.Len(t, ship, 1)
		assert.True(t, ship[0].IsNeutral())
		assert.Equal(t, freeShippingLabel, ship[0].Label())
		assert.Equal(t, int64(5000), o.Total())
	})

	t.Run("discount pulls order back under threshold", func(t *testing.T) {
		v := &mockValidator{discount: &coupon.Discount{Amount: 1000}}
		calc := New(v, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 5, 1000))
		require.NoError(t, calc.ApplyCoupon(context.Background(), o, "TEN"))

		require.NoError(t, calc.Reprice(context.Background(), o))

		assert.Equal(t, int64(5000-1000+499), o.Total())
	})

	t.Run("empty order has no shipping", func(t *testing.T) {
		calc := New(&mockValidator{}, cfg)
		o := order.New()

		require.NoError(t, calc.Reprice(context.Background(), o))

		assert.Empty(t, o.Adjustments(""))
		assert.Zero(t, o.Total())
	})

	t.Run("is idempotent", func(t *testing.T) {
		v := &mockValidator{discount: &coupon.Discount{Amount: 250}}
		calc := New(v, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 2, 1000))
		require.NoError(t, calc.ApplyCoupon(context.Background(), o, "QUARTER"))

		require.NoError(t, calc.Reprice(context.Background(), o))
		first := o.Total()
		require.NoError(t, calc.Reprice(context.Background(), o))

		assert.Equal(t, first, o.Total())
		assert.Len(t, o.Adjustments(""), 2)
	})

	t.Run("drops coupon that no longer validates", func(t *testing.T) {
		v := &mockValidator{discount: &coupon.Discount{Amount: 250}}
		calc := New(v, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 2, 1000))
		require.NoError(t, calc.ApplyCoupon(context.Background(), o, "QUARTER"))

		v.err = coupon.ErrCouponUsageLimitReached
		require.NoError(t, calc.Reprice(context.Background(), o))

		assert.Empty(t, CouponCode(o))
		assert.Equal(t, int64(2499), o.Total())
	})

	t.Run("propagates lookup failures", func(t *testing.T) {
		v := &mockValidator{discount: &coupon.Discount{Amount: 250}}
		calc := New(v, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 2, 1000))
		require.NoError(t, calc.ApplyCoupon(context.Background(), o, "QUARTER"))

		v.err = errors.New("connection reset")
		err := calc.Reprice(context.Background(), o)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("keeps manual shipping next to the derived fee", func(t *testing.T) {
		calc := New(&mockValidator{}, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))
		bulky := order.NewAdjustment(order.AdjustmentShipping, "Bulky item", 300)
		o.AddAdjustment(bulky)

		require.NoError(t, calc.Reprice(context.Background(), o))
		require.NoError(t, calc.Reprice(context.Background(), o))

		ship := o.Adjustments(order.AdjustmentShipping)
		require.Len(t, ship, 2)
		assert.Equal(t, bulky, ship[0])
		assert.Equal(t, ShippingOrigin, ship[1].OriginCode())
		assert.Equal(t, int64(1000+300+499), o.Total())
	})

	t.Run("keeps locked shipping", func(t *testing.T) {
		calc := New(&mockValidator{}, cfg)
		o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))
		courier := order.NewAdjustment(order.AdjustmentShipping, "Courier", 1500)
		o.AddAdjustment(courier)
		courier.Lock()

		require.NoError(t, calc.Reprice(context.Background(), o))

		assert.Equal(t, []*order.Adjustment{courier}, o.Adjustments(order.AdjustmentShipping))
		assert.Equal(t, int64(2500), o.Total())
	})
}

func TestCalculator_Redeem(t *testing.T) {
	v := &mockValidator{discount: &coupon.Discount{Amount: 100}}
	calc := New(v, Config{Exponent: 2})
	o := cartWith(order.NewItem("p1", "Waffle", 1, 1000))
	o.AddAdjustment(order.NewAdjustment(order.AdjustmentPromotion, "Goodwill", -50))
	require.NoError(t, calc.ApplyCoupon(context.Background(), o, "SAVE"))

	require.NoError(t, calc.Redeem(context.Background(), o))

	assert.Equal(t, []string{"SAVE"}, v.redeemed)
}
