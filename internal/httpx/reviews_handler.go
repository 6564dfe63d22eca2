package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/reviews"
)

type ReviewsHandler struct {
	Service *reviews.Service
}

func (h *ReviewsHandler) Register(r chi.Router) {
	r.Post("/reviews", h.create)
}

func (h *ReviewsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req reviews.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rv, err := h.Service.Create(ctx, UserFrom(r.Context()).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"review": rv})
}
