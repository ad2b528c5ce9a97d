package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
)

func TestEncodeOrder(t *testing.T) {
	completed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	s := order.Snapshot{
		ID:                  "o1",
		State:               order.StateNew,
		Number:              "000000007",
		CheckoutCompletedAt: &completed,
		Version:             3,
		ItemsTotal:          1430,
		AdjustmentsTotal:    -100,
		Total:               1330,
		Items: []order.ItemSnapshot{{
			ID:               "i1",
			ProductID:        "p1",
			ProductName:      "Waffle",
			Quantity:         2,
			UnitPrice:        650,
			AdjustmentsTotal: 130,
			Total:            1430,
			Adjustments: []order.AdjustmentSnapshot{
				{ID: "a1", Type: order.AdjustmentTax, Label: "VAT", Amount: 130, Locked: true},
			},
		}},
		Adjustments: []order.AdjustmentSnapshot{
			{ID: "a2", Type: order.AdjustmentPromotion, Label: "$1 off", OriginCode: "ONE", Amount: -100},
		},
	}

	var e jx.Encoder
	EncodeOrder(&e, s)

	var got map[string]any
	require.NoError(t, json.Unmarshal(e.Bytes(), &got))
	assert.Equal(t, "o1", got["id"])
	assert.Equal(t, "new", got["state"])
	assert.Equal(t, "000000007", got["number"])
	assert.Equal(t, "2026-03-01T12:30:00Z", got["checkoutCompletedAt"])
	assert.Equal(t, "ONE", got["couponCode"])
	assert.NotContains(t, got, "notes")
	assert.EqualValues(t, 1330, got["total"])
	assert.EqualValues(t, 1430, got["itemsTotal"])
	assert.EqualValues(t, -100, got["adjustmentsTotal"])

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "p1", item["productId"])
	assert.EqualValues(t, 650, item["unitPrice"])
	adj := item["adjustments"].([]any)[0].(map[string]any)
	assert.Equal(t, true, adj["locked"])
	assert.NotContains(t, adj, "originCode")
}

func TestEncodeOrder_Empty(t *testing.T) {
	var e jx.Encoder
	EncodeOrder(&e, order.New().Snapshot())

	assert.JSONEq(t, `{
		"id": "", "state": "cart", "version": 0,
		"itemsTotal": 0, "adjustmentsTotal": 0, "total": 0,
		"items": [], "adjustments": []
	}`, e.String())
}

func TestEncodeProduct(t *testing.T) {
	p := product.Product{
		ID:       "p1",
		Name:     "Waffle",
		Price:    decimal.RequireFromString("6.50"),
		Category: "Waffle",
		Image:    product.Image{Thumbnail: "/t.jpg", Mobile: "/m.jpg", Tablet: "/tb.jpg", Desktop: "/d.jpg"},
	}

	var e jx.Encoder
	EncodeProduct(&e, p, "https://cdn.example.com")

	assert.JSONEq(t, `{
		"id": "p1", "name": "Waffle", "price": 6.5, "category": "Waffle",
		"image": {
			"thumbnail": "https://cdn.example.com/t.jpg",
			"mobile": "https://cdn.example.com/m.jpg",
			"tablet": "https://cdn.example.com/tb.jpg",
			"desktop": "https://cdn.example.com/d.jpg"
		}
	}`, e.String())
}
