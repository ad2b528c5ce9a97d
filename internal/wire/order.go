// Package wire holds the JSON representation of domain objects shared by
// the HTTP API and published events. Amounts are integers in minor units.
package wire

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// EncodeOrder writes s as a JSON object.
func EncodeOrder(e *jx.Encoder, s order.Snapshot) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("state")
	e.Str(string(s.State))
	if s.Number != "" {
		e.FieldStart("number")
		e.Str(s.Number)
	}
	if s.Notes != "" {
		e.FieldStart("notes")
		e.Str(s.Notes)
	}
	if s.CheckoutCompletedAt != nil {
		e.FieldStart("checkoutCompletedAt")
		e.Str(s.CheckoutCompletedAt.UTC().Format(time.RFC3339Nano))
	}
	if code := couponCode(s); code != "" {
		e.FieldStart("couponCode")
		e.Str(code)
	}
	e.FieldStart("version")
	e.Int64(s.Version)
	e.FieldStart("itemsTotal")
	e.Int64(s.ItemsTotal)
	e.FieldStart("adjustmentsTotal")
	e.Int64(s.AdjustmentsTotal)
	e.FieldStart("total")
	e.Int64(s.Total)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		encodeItem(e, it)
	}
	e.ArrEnd()

	e.FieldStart("adjustments")
	encodeAdjustments(e, s.Adjustments)
	e.ObjEnd()
}

func couponCode(s order.Snapshot) string {
	for _, a := range s.Adjustments {
		if a.Type == order.AdjustmentPromotion && a.OriginCode != "" {
			return a.OriginCode
		}
	}
	return ""
}

func encodeItem(e *jx.Encoder, it order.ItemSnapshot) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("productId")
	e.Str(it.ProductID)
	e.FieldStart("productName")
	e.Str(it.ProductName)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unitPrice")
	e.Int64(it.UnitPrice)
	e.FieldStart("adjustmentsTotal")
	e.Int64(it.AdjustmentsTotal)
	e.FieldStart("total")
	e.Int64(it.Total)
	e.FieldStart("adjustments")
	encodeAdjustments(e, it.Adjustments)
	e.ObjEnd()
}

func encodeAdjustments(e *jx.Encoder, list []order.AdjustmentSnapshot) {
	e.ArrStart()
	for _, a := range list {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(a.ID)
		e.FieldStart("type")
		e.Str(a.Type)
		e.FieldStart("label")
		e.Str(a.Label)
		if a.OriginCode != "" {
			e.FieldStart("originCode")
			e.Str(a.OriginCode)
		}
		e.FieldStart("amount")
		e.Int64(a.Amount)
		e.FieldStart("neutral")
		e.Bool(a.Neutral)
		e.FieldStart("locked")
		e.Bool(a.Locked)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// EncodeProduct writes p as a JSON object. The price is a decimal number in
// major units and image paths are prefixed with imageBaseURL.
func EncodeProduct(e *jx.Encoder, p product.Product, imageBaseURL string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(imageBaseURL + p.Image.Thumbnail)
	e.FieldStart("mobile")
	e.Str(imageBaseURL + p.Image.Mobile)
	e.FieldStart("tablet")
	e.Str(imageBaseURL + p.Image.Tablet)
	e.FieldStart("desktop")
	e.Str(imageBaseURL + p.Image.Desktop)
	e.ObjEnd()
	e.ObjEnd()
}
