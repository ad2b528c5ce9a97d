// Package pricing keeps the derived adjustments of an order in sync with its
// contents: coupon promotions and the shipping fee.
package pricing

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-orders/internal/domain/coupon"
	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// Config holds pricing parameters. All amounts are in minor units.
type Config struct {
	// Exponent is the number of minor unit digits of the currency.
	Exponent int32
	// ShippingFee is charged on every non-empty order. Zero disables shipping.
	ShippingFee int64
	// FreeShippingOver waives the fee once the discounted items total
	// reaches it. Zero disables the waiver.
	FreeShippingOver int64
}

const (
	shippingLabel     = "Shipping"
	freeShippingLabel = "Free shipping"
	// ShippingOrigin marks the shipping adjustment derived from Config.
	// Manual shipping adjustments carry no origin and survive repricing.
	ShippingOrigin = "flat-rate"
)

// Calculator applies pricing rules to orders.
type Calculator struct {
	coupons coupon.Validator
	cfg     Config
}

// New creates a Calculator that validates coupons through coupons.
func New(coupons coupon.Validator, cfg Config) *Calculator {
	return &Calculator{coupons: coupons, cfg: cfg}
}

// Exponent returns the currency exponent the calculator works with.
func (c *Calculator) Exponent() int32 { return c.cfg.Exponent }

// NewItem creates an order line for p priced at the current catalog price.
func (c *Calculator) NewItem(p product.Product, quantity int) *order.Item {
	return order.NewItem(p.ID, p.Name, quantity, p.MinorPrice(c.cfg.Exponent))
}

// Reprice recomputes every derived adjustment of o. A coupon that no longer
// validates is dropped from the order instead of failing the call.
func (c *Calculator) Reprice(ctx context.Context, o *order.Order) error {
	o.RecalculateItemsTotal()

	if code := CouponCode(o); code != "" && pinnedCoupon(o) == nil {
		err := c.ApplyCoupon(ctx, o, code)
		switch {
		case err == nil:
		case isCouponRejection(err):
			RemoveCoupon(o)
		default:
			return errors.Wrap(err, "reprice coupon")
		}
	}

	c.applyShipping(o)
	return nil
}

// ApplyCoupon validates code against the items of o and replaces the coupon
// promotion of the order with the resulting discount. A discount of zero is
// recorded as a neutral promotion so the order still carries the code.
func (c *Calculator) ApplyCoupon(ctx context.Context, o *order.Order, code string) error {
	if pinnedCoupon(o) != nil {
		return errors.Wrap(coupon.ErrInvalidCoupon, "order has a locked promotion")
	}

	d, err := c.coupons.Validate(ctx, code, CouponItems(o))
	if err != nil {
		return err
	}

	RemoveCoupon(o)

	label := d.Description
	if label == "" {
		label = d.Code
	}
	a := order.NewAdjustment(order.AdjustmentPromotion, label, -d.Amount)
	a.SetOriginCode(d.Code)
	if d.Amount == 0 {
		a.SetNeutral(true)
	}
	o.AddAdjustment(a)
	return nil
}

// Redeem records a use of every coupon applied to o.
func (c *Calculator) Redeem(ctx context.Context, o *order.Order) error {
	for _, a := range o.Adjustments(order.AdjustmentPromotion) {
		if a.OriginCode() == "" {
			continue
		}
		if err := c.coupons.Redeem(ctx, a.OriginCode()); err != nil {
			return errors.Wrapf(err, "redeem %q", a.OriginCode())
		}
	}
	return nil
}

// RemoveCoupon drops unlocked coupon promotions from o. Manually added
// promotions without an origin code are kept.
func RemoveCoupon(o *order.Order) {
	for _, a := range o.Adjustments(order.AdjustmentPromotion) {
		if a.OriginCode() != "" {
			o.RemoveAdjustment(a)
		}
	}
}

// CouponCode returns the coupon code currently applied to o, or "" if none.
func CouponCode(o *order.Order) string {
	for _, a := range o.Adjustments(order.AdjustmentPromotion) {
		if a.OriginCode() != "" {
			return a.OriginCode()
		}
	}
	return ""
}

// CouponItems converts the lines of o into coupon line items.
func CouponItems(o *order.Order) []coupon.Item {
	items := o.Items()
	out := make([]coupon.Item, 0, len(items))
	for _, it := range items {
		out = append(out, coupon.Item{
			ProductID: it.ProductID(),
			UnitPrice: it.UnitPrice(),
			Quantity:  it.Quantity(),
		})
	}
	return out
}

func (c *Calculator) applyShipping(o *order.Order) {
	for _, a := range o.Adjustments(order.AdjustmentShipping) {
		if a.IsLocked() {
			return
		}
	}
	for _, a := range o.Adjustments(order.AdjustmentShipping) {
		if a.OriginCode() == ShippingOrigin {
			o.RemoveAdjustment(a)
		}
	}

	if o.IsEmpty() || c.cfg.ShippingFee <= 0 {
		return
	}

	a := order.NewAdjustment(order.AdjustmentShipping, shippingLabel, c.cfg.ShippingFee)
	a.SetOriginCode(ShippingOrigin)
	discounted := o.ItemsTotal() + o.AdjustmentsTotal(order.AdjustmentPromotion)
	if c.cfg.FreeShippingOver > 0 && discounted >= c.cfg.FreeShippingOver {
		a.SetLabel(freeShippingLabel)
		a.SetNeutral(true)
	}
	o.AddAdjustment(a)
}

func pinnedCoupon(o *order.Order) *order.Adjustment {
	for _, a := range o.Adjustments(order.AdjustmentPromotion) {
		if a.IsLocked() && a.OriginCode() != "" {
			return a
		}
	}
	return nil
}

func isCouponRejection(err error) bool {
	return errors.Is(err, coupon.ErrInvalidCoupon) ||
		errors.Is(err, coupon.ErrCouponExpired) ||
		errors.Is(err, coupon.ErrCouponUsageLimitReached)
}
