package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		rule        *Rule
		items       []Item
		wantAmount  int64
		wantDesc    string
		wantErr     error
		wantErrText string
	}{
		{
			name: "percentage 18% off $100 subtotal",
			rule: &Rule{
				Code:         "PCT18",
				DiscountType: DiscountPercentage,
				Value:        d("18"),
				Description:  "18% off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 5000, Quantity: 2},
			},
			wantAmount: 1800,
			wantDesc:   "18% off",
		},
		{
			name: "percentage 100% off equals subtotal",
			rule: &Rule{
				Code:         "FREE",
				DiscountType: DiscountPercentage,
				Value:        d("100"),
				Description:  "100% off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 2500, Quantity: 4},
			},
			wantAmount: 10000,
			wantDesc:   "100% off",
		},
		{
			name: "fixed $9 off $100 subtotal",
			rule: &Rule{
				Code:         "FLAT9",
				DiscountType: DiscountFixed,
				Value:        d("9"),
				Description:  "$9 off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 10000, Quantity: 1},
			},
			wantAmount: 900,
			wantDesc:   "$9 off",
		},
		{
			name: "fixed $200 off capped at $100 subtotal",
			rule: &Rule{
				Code:         "BIG",
				DiscountType: DiscountFixed,
				Value:        d("200"),
				Description:  "$200 off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 5000, Quantity: 2},
			},
			wantAmount: 10000,
			wantDesc:   "$200 off",
		},
		{
			name: "free lowest with 3 items",
			rule: &Rule{
				Code:         "FREELOW",
				DiscountType: DiscountFreeLowest,
				Value:        decimal.Zero,
				Description:  "free lowest item",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 500, Quantity: 1},
				{ProductID: "p2", UnitPrice: 1000, Quantity: 1},
				{ProductID: "p3", UnitPrice: 1500, Quantity: 1},
			},
			wantAmount: 500,
			wantDesc:   "free lowest item",
		},
		{
			name: "free lowest ignores zero quantity lines",
			rule: &Rule{
				Code:         "FREELOW",
				DiscountType: DiscountFreeLowest,
				Description:  "free lowest item",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 100, Quantity: 0},
				{ProductID: "p2", UnitPrice: 4250, Quantity: 1},
			},
			wantAmount: 4250,
			wantDesc:   "free lowest item",
		},
		{
			name: "min items not met returns ErrInvalidCoupon",
			rule: &Rule{
				Code:         "MIN2",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MinItems:     2,
				Description:  "10% off min 2",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 5000, Quantity: 1},
			},
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "min items met succeeds",
			rule: &Rule{
				Code:         "MIN2",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MinItems:     2,
				Description:  "10% off min 2",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 5000, Quantity: 2},
			},
			wantAmount: 1000,
			wantDesc:   "10% off min 2",
		},
		{
			name: "empty items with zero min items",
			rule: &Rule{
				Code:         "ANY",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				Description:  "10% off",
			},
			items:      []Item{},
			wantAmount: 0,
			wantDesc:   "10% off",
		},
		{
			name: "percentage rounds half away from zero to the minor unit",
			rule: &Rule{
				Code:         "PCT15",
				DiscountType: DiscountPercentage,
				Value:        d("15"),
				Description:  "15% off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 999, Quantity: 3},
			},
			// subtotal = 2997, 15% = 449.55 -> 450
			wantAmount: 450,
			wantDesc:   "15% off",
		},
		{
			name: "fractional percentage",
			rule: &Rule{
				Code:         "PCT33",
				DiscountType: DiscountPercentage,
				Value:        d("33.33"),
				Description:  "33.33% off",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 1001, Quantity: 1},
			},
			// 1001 * 33.33 / 100 = 333.6333 -> 334
			wantAmount: 334,
			wantDesc:   "33.33% off",
		},
		{
			name: "max discount caps percentage",
			rule: &Rule{
				Code:         "HALF",
				DiscountType: DiscountPercentage,
				Value:        d("50"),
				MaxDiscount:  d("20"),
				Description:  "50% off up to $20",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 10000, Quantity: 1},
			},
			wantAmount: 2000,
			wantDesc:   "50% off up to $20",
		},
		{
			name: "unsupported discount type returns error",
			rule: &Rule{
				Code:         "BAD",
				DiscountType: DiscountType("bogus"),
				Value:        d("10"),
				Description:  "bad type",
			},
			items: []Item{
				{ProductID: "p1", UnitPrice: 1000, Quantity: 1},
			},
			wantErrText: "unsupported discount type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.rule, tt.items, 2)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrText)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, tt.rule.Code, got.Code)
		})
	}
}

func TestApply_ZeroExponentCurrency(t *testing.T) {
	rule := &Rule{Code: "YEN500", DiscountType: DiscountFixed, Value: d("500")}

	got, err := Apply(rule, []Item{{ProductID: "p1", UnitPrice: 1200, Quantity: 1}}, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Amount)
}
