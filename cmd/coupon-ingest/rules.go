package main

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-orders/internal/domain/coupon"
)

var knownRules = map[string]coupon.Rule{
	"BIRTHDAY": {DiscountType: coupon.DiscountFreeLowest, Description: "Birthday: free lowest item"},
	"BUYGETON": {DiscountType: coupon.DiscountFreeLowest, MinItems: 2, Description: "Lowest item free (buy 2+)"},
	"FIFTYOFF": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(50), Description: "50% off entire order"},
	"SIXTYOFF": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(60), Description: "60% off entire order"},
	"FREEZAAA": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(100), Description: "Everything free!"},
	"GNULINUX": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(15), Description: "Open source discount: 15% off"},
	"OVER9000": {DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(9), Description: "$9 off your order"},
	"HAPPYHRS": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(18), Description: "Happy Hours: 18% off"},
}

// ruleFor returns the discount rule of a discovered code. Unknown codes get
// 10% off.
func ruleFor(code string) coupon.Rule {
	rule, ok := knownRules[code]
	if !ok {
		rule = coupon.Rule{
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Description:  "Valid promo code: 10% off",
		}
	}
	rule.Code = code
	return rule
}
