package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-orders/internal/domain/cart"
	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/workflow"
)

const maxBodySize = 64 << 10

// CreateOrder opens an empty cart.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.Create(r.Context())
	h.respond(w, r, http.StatusCreated, o, err)
}

// GetOrder returns an order with its items and adjustments.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.Get(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, o, err)
}

// AddItem adds a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  int
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && productID == "" {
		err = badRequest("productId is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.carts.AddItem(r.Context(), r.PathValue("id"), productID, quantity)
	h.respond(w, r, http.StatusOK, o, err)
}

// UpdateItem sets the quantity of an item. Zero removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	quantity := -1
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		quantity, err = d.Int()
		return err
	})
	if err == nil && quantity < 0 {
		err = badRequest("quantity must be a non-negative integer")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.carts.UpdateQuantity(r.Context(), r.PathValue("id"), r.PathValue("itemId"), quantity)
	h.respond(w, r, http.StatusOK, o, err)
}

// RemoveItem deletes an item from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemId"))
	h.respond(w, r, http.StatusOK, o, err)
}

// ApplyCoupon applies a promo code, replacing any previous one.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = d.Str()
		return err
	})
	if err == nil && code == "" {
		err = badRequest("code is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.carts.ApplyCoupon(r.Context(), r.PathValue("id"), code)
	h.respond(w, r, http.StatusOK, o, err)
}

// RemoveCoupon drops the applied promo code.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.RemoveCoupon(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, o, err)
}

// AddAdjustment attaches a manual adjustment to the order or one of its items.
func (h *Handler) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	var in cart.AdjustmentInput
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "itemId":
			in.ItemID, err = d.Str()
		case "type":
			in.Type, err = d.Str()
		case "label":
			in.Label, err = d.Str()
		case "amount":
			in.Amount, err = d.Int64()
		case "neutral":
			in.Neutral, err = d.Bool()
		case "locked":
			in.Locked, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.carts.AddAdjustment(r.Context(), r.PathValue("id"), in)
	h.respond(w, r, http.StatusOK, o, err)
}

// RemoveAdjustment deletes an unlocked adjustment.
func (h *Handler) RemoveAdjustment(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.RemoveAdjustment(r.Context(), r.PathValue("id"), r.PathValue("adjustmentId"))
	h.respond(w, r, http.StatusOK, o, err)
}

// SetNotes replaces the customer notes.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var notes string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "notes" {
			return d.Skip()
		}
		var err error
		notes, err = d.Str()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.carts.SetNotes(r.Context(), r.PathValue("id"), notes)
	h.respond(w, r, http.StatusOK, o, err)
}

// Checkout places the order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.carts.Checkout(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, o, err)
}

// Transition moves a placed order through the workflow.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	t := workflow.Transition(r.PathValue("transition"))
	o, err := h.carts.Transition(r.Context(), r.PathValue("id"), t)
	h.respond(w, r, http.StatusOK, o, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, o *order.Order, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, status, o)
}

// decodeBody reads a JSON object from the request body and calls fn for
// each field.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) > maxBodySize {
		return badRequest("request body too large")
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return badRequest("request body must be a JSON object")
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
