// Package handler exposes the catalog and cart operations over HTTP.
package handler

import (
	"net/http"

	"github.com/xenking/kart-orders/internal/domain/auth"
	"github.com/xenking/kart-orders/internal/domain/cart"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the HTTP API, delegating business logic to the cart
// service and product repository.
type Handler struct {
	products     product.Repository
	carts        *cart.Service
	auth         *auth.Authenticator
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	carts *cart.Service,
	authenticator *auth.Authenticator,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		auth:         authenticator,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	write := func(fn http.HandlerFunc) http.Handler { return h.requireKey("", fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return h.requireKey(auth.ScopeOrdersAdmin, fn) }

	mux.Handle("POST /api/orders", write(h.CreateOrder))
	mux.Handle("GET /api/orders/{id}", write(h.GetOrder))
	mux.Handle("POST /api/orders/{id}/items", write(h.AddItem))
	mux.Handle("PATCH /api/orders/{id}/items/{itemId}", write(h.UpdateItem))
	mux.Handle("DELETE /api/orders/{id}/items/{itemId}", write(h.RemoveItem))
	mux.Handle("PUT /api/orders/{id}/coupon", write(h.ApplyCoupon))
	mux.Handle("DELETE /api/orders/{id}/coupon", write(h.RemoveCoupon))
	mux.Handle("PUT /api/orders/{id}/notes", write(h.SetNotes))
	mux.Handle("POST /api/orders/{id}/checkout", write(h.Checkout))
	mux.Handle("POST /api/orders/{id}/adjustments", admin(h.AddAdjustment))
	mux.Handle("DELETE /api/orders/{id}/adjustments/{adjustmentId}", admin(h.RemoveAdjustment))
	mux.Handle("POST /api/orders/{id}/transitions/{transition}", admin(h.Transition))
}
