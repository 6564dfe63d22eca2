package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/events"
	"github.com/ariefcatur/go-shop-backend/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/reviews"
)

type OrdersHandler struct {
	Service     *orders.Service
	Repo        *orders.Repo
	Reviews     *reviews.Repo
	Redis       *redis.Client
	Producer    *kafkax.Producer // shop.order.placed
	ServiceName string
}

// PlaceOrderReq deliberately has no total field: totals are computed
// server-side from catalog prices at reservation time.
type PlaceOrderReq struct {
	ExternalID      string               `json:"external_id,omitempty"`
	Items           []inventory.Line     `json:"items"`
	ShippingAddress orders.Address       `json:"shipping_address"`
	PaymentResult   orders.PaymentResult `json:"payment_result"`
}

type orderWithReview struct {
	orders.Order
	HasReviewed bool `json:"has_reviewed"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listMine)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u := UserFrom(r.Context())

	// Idempotent fast path: a retried request with a known external id
	// returns the existing order without touching stock.
	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil {
			if o, err := h.Repo.Get(ctx, orderID); err == nil && o.UserID == u.ID {
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
	}

	o, err := h.Service.PlaceOrder(ctx, u.ID, orders.PlaceOrderInput{
		ExternalID:      req.ExternalID,
		Lines:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentResult:   req.PaymentResult,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderPlace, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	}
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, statusKey, string(o.Status), redisx.TTLStatusCache).Err()

	h.publishPlaced(o, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) publishPlaced(o orders.Order, trace string) {
	lines := make([]events.OrderLineRef, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, events.OrderLineRef{ProductID: l.ProductID, Qty: l.Qty, PriceCents: l.PriceCents})
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       trace,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderPlacedPayload{
			OrderID: o.ID, UserID: o.UserID, Lines: lines, TotalCents: o.TotalCents,
		}),
	}
	h.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u := UserFrom(r.Context())
	list, err := h.Repo.ListByUser(ctx, u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderWithReview, 0, len(list))
	for _, o := range list {
		reviewed, err := h.Reviews.HasReviewed(ctx, u.ID, o.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, orderWithReview{Order: o, HasReviewed: reviewed})
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.Get(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u := UserFrom(r.Context())
	if o.UserID != u.ID {
		// do not reveal other users' orders
		writeError(w, r, apperrs.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus reads the cached status first and falls back to the database.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		if st, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Result(); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": st})
			return
		}
	}

	o, err := h.Repo.Get(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u := UserFrom(r.Context())
	if o.UserID != u.ID {
		writeError(w, r, apperrs.ErrNotFound)
		return
	}
	if h.Redis != nil {
		h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID), string(o.Status), redisx.TTLStatusCache)
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": string(o.Status)})
}
