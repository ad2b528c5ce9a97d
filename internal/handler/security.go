package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-orders/internal/domain/auth"
)

// APIKeyHeader is the request header carrying the client API key.
const APIKeyHeader = "api_key"

var errForbidden = errors.New("api key lacks required scope")

// requireKey authenticates the request by its API key and, when scope is
// non-empty, checks that the key grants it.
func (h *Handler) requireKey(scope string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := h.auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if scope != "" && !info.HasScope(scope) {
			writeError(w, r, errForbidden)
			return
		}
		next(w, r.WithContext(auth.WithKey(r.Context(), info)))
	})
}
