package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
	"github.com/xenking/kart-orders/internal/wire"
)

func encodeProduct(e *jx.Encoder, p product.Product, imageBaseURL string) {
	wire.EncodeProduct(e, p, imageBaseURL)
}

func writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	var e jx.Encoder
	wire.EncodeOrder(&e, o.Snapshot())
	writeJSON(w, status, e.Bytes())
}
