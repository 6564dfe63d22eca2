package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/inventory"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is an internal error: opaque to the client, logged with the
// request correlation id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *apperrs.ValidationError
		se  *apperrs.StockError
		ce  *apperrs.ConflictError
		te  *apperrs.TransitionError
		ue  *apperrs.UpstreamError
		rej *inventory.RejectedError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error()})
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, errorBody{
			Error: "insufficient stock", ProductID: se.ProductID,
			Requested: se.Requested, Available: se.Available,
		})
	case errors.As(err, &rej):
		// rejection without a stock detail: the failing product is missing
		writeJSON(w, http.StatusNotFound, errorBody{Error: "product not found", ProductID: rej.ProductID})
	case errors.Is(err, apperrs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorBody{Error: ce.Error()})
	case errors.As(err, &te):
		writeJSON(w, http.StatusConflict, errorBody{Error: te.Error()})
	case errors.As(err, &ue):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: ue.Error()})
	default:
		slog.Error("internal error", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
