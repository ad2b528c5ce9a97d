package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a rule computes its discount.
type DiscountType string

const (
	// DiscountPercentage takes Value percent off the items subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes Value off, never more than the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest makes the cheapest unit in the cart free.
	DiscountFreeLowest DiscountType = "free_lowest"
)

var (
	// ErrInvalidCoupon means the code is unknown or the cart does not meet
	// the rule's minimum item count.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired means the code is used outside its validity window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached means every allowed use was redeemed.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule is a stored coupon.
//
// Value is a percentage for DiscountPercentage and an amount in major
// currency units for DiscountFixed. MaxDiscount, when positive, caps the
// discount and is also in major units. MaxUses of zero means unlimited.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	MaxUses      int
	Uses         int
	MaxDiscount  decimal.Decimal
}

// Usable reports whether the rule may be applied at now. It checks the
// validity window first, then the usage limit.
func (r *Rule) Usable(now time.Time) error {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCouponExpired
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ErrCouponExpired
	}
	if r.MaxUses > 0 && r.Uses >= r.MaxUses {
		return ErrCouponUsageLimitReached
	}
	return nil
}

// Discount is the result of applying a rule. Amount is in minor units and
// never negative.
type Discount struct {
	Code        string
	Amount      int64
	Description string
}

// Item is one cart line as seen by discount rules.
type Item struct {
	ProductID string
	UnitPrice int64
	Quantity  int
}

// Repository stores coupon rules. FindByCode returns ErrInvalidCoupon for
// unknown codes.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
