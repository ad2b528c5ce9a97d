package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount for the given rule and cart items. exp is
// the number of minor units digits of the currency (2 for cents) and is
// used to convert fixed amounts from the rule into minor units.
//
// It returns ErrInvalidCoupon when the cart does not satisfy the rule's
// minimum item count requirement.
func Apply(rule *Rule, items []Item, exp int32) (Discount, error) {
	totalQty := totalQuantity(items)
	if rule.MinItems > 0 && totalQty < rule.MinItems {
		return Discount{}, ErrInvalidCoupon
	}

	subtotal := calcSubtotal(items)

	var amount int64
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = decimal.NewFromInt(subtotal).Mul(rule.Value).Div(hundred).Round(0).IntPart()
	case DiscountFixed:
		amount = min(toMinor(rule.Value, exp), subtotal)
	case DiscountFreeLowest:
		amount = findLowestUnitPrice(items)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	if rule.MaxDiscount.IsPositive() {
		amount = min(amount, toMinor(rule.MaxDiscount, exp))
	}

	return Discount{
		Code:        rule.Code,
		Amount:      max(amount, 0),
		Description: rule.Description,
	}, nil
}

// calcSubtotal returns the sum of unit price * quantity across all items.
func calcSubtotal(items []Item) int64 {
	var sum int64
	for _, item := range items {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	return sum
}

// totalQuantity returns the sum of quantities across all items.
func totalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// findLowestUnitPrice returns the lowest unit price among items with a
// positive quantity. If there are none it returns zero.
func findLowestUnitPrice(items []Item) int64 {
	var (
		lowest int64
		found  bool
	)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if !found || item.UnitPrice < lowest {
			lowest = item.UnitPrice
			found = true
		}
	}
	return lowest
}

func toMinor(v decimal.Decimal, exp int32) int64 {
	return v.Shift(exp).Round(0).IntPart()
}
