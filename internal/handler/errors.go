package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/auth"
	"github.com/xenking/kart-orders/internal/domain/cart"
	"github.com/xenking/kart-orders/internal/domain/coupon"
	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
	"github.com/xenking/kart-orders/internal/workflow"
)

// badRequestError reports a malformed request body or parameter.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// statusOf maps a domain error to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	var (
		badReq     *badRequestError
		itemNF     *cart.ItemNotFoundError
		adjNF      *cart.AdjustmentNotFoundError
		productNF  *cart.ProductNotFoundError
		invalidQty *cart.InvalidQuantityError
		transition *workflow.TransitionError
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.As(err, &itemNF),
		errors.As(err, &adjNF):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrCheckoutCompleted),
		errors.Is(err, order.ErrVersionConflict),
		errors.As(err, &transition):
		return http.StatusConflict
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidAdjustment),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.As(err, &productNF),
		errors.As(err, &invalidQty):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code": ..., "message": ...}. Internal errors
// are logged and their details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := messageOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, e.Bytes())
}

// messageOf returns the innermost domain message, without the wrapping
// context added on the way up.
func messageOf(err error) string {
	for _, target := range []error{
		auth.ErrUnauthorized,
		order.ErrNotFound,
		order.ErrVersionConflict,
		product.ErrNotFound,
		cart.ErrCheckoutCompleted,
		cart.ErrEmptyCart,
		cart.ErrInvalidAdjustment,
		coupon.ErrInvalidCoupon,
		coupon.ErrCouponExpired,
		coupon.ErrCouponUsageLimitReached,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	var (
		itemNF     *cart.ItemNotFoundError
		adjNF      *cart.AdjustmentNotFoundError
		productNF  *cart.ProductNotFoundError
		invalidQty *cart.InvalidQuantityError
		transition *workflow.TransitionError
	)
	switch {
	case errors.As(err, &itemNF):
		return itemNF.Error()
	case errors.As(err, &adjNF):
		return adjNF.Error()
	case errors.As(err, &productNF):
		return productNF.Error()
	case errors.As(err, &invalidQty):
		return invalidQty.Error()
	case errors.As(err, &transition):
		return transition.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
