package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/catalog"
	"github.com/ariefcatur/go-shop-backend/internal/events"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/media"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/ariefcatur/go-shop-backend/internal/users"
)

type AdminHandler struct {
	Catalog     *catalog.Repo
	Orders      *orders.Service
	OrderRepo   *orders.Repo
	Users       *users.Repo
	Media       media.Uploader
	Redis       *redis.Client
	Producer    *kafkax.Producer // shop.order.status
	ServiceName string
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/products", h.createProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{id}/status", h.updateOrderStatus)
	r.Get("/customers", h.listCustomers)
	r.Get("/stats", h.stats)
}

// productReq carries images as base64 payloads; they are pushed to the media
// host and only the returned URLs are persisted.
type productReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int      `json:"price_cents"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
}

func (p productReq) validate() error {
	switch {
	case p.Name == "":
		return apperrs.Invalid("name", "required")
	case p.Description == "":
		return apperrs.Invalid("description", "required")
	case p.PriceCents < 0:
		return apperrs.Invalid("price_cents", "must be non-negative")
	case p.Stock < 0:
		return apperrs.Invalid("stock", "must be non-negative")
	case p.Category == "":
		return apperrs.Invalid("category", "required")
	case len(p.Images) == 0:
		return apperrs.Invalid("images", "at least one image is required")
	}
	return nil
}

func (h *AdminHandler) uploadImages(ctx context.Context, images []string) ([]string, error) {
	files := make([]media.File, 0, len(images))
	for i, img := range images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return nil, apperrs.Invalid("images", fmt.Sprintf("image %d is not valid base64", i))
		}
		files = append(files, media.File{Name: fmt.Sprintf("product-%d", i), Data: data})
	}
	return media.UploadAll(ctx, h.Media, files)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	urls, err := h.uploadImages(ctx, req.Images)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.Catalog.Create(ctx, catalog.ProductInput{
		Name: req.Name, Description: req.Description, PriceCents: req.PriceCents,
		Stock: req.Stock, Category: req.Category, ImageURLs: urls,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": p})
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	urls, err := h.uploadImages(ctx, req.Images)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.Catalog.Update(ctx, chi.URLParam(r, "id"), catalog.ProductInput{
		Name: req.Name, Description: req.Description, PriceCents: req.PriceCents,
		Category: req.Category, ImageURLs: urls,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.OrderRepo.ListAll(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *AdminHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if req.Status == "" {
		writeError(w, r, apperrs.Invalid("status", "required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	before, err := h.OrderRepo.Get(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.Orders.Transition(ctx, orderID, orders.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, statusKey, string(o.Status), redisx.TTLStatusCache).Err()

	h.publishStatusChanged(before.Status, o, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *AdminHandler) publishStatusChanged(from orders.Status, o orders.Order, trace string) {
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       trace,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderStatusChangedPayload{
			OrderID: o.ID, From: string(from), To: string(o.Status),
		}),
	}
	h.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *AdminHandler) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cs, err := h.Users.ListAll(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": cs})
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.OrderRepo.Stats(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": s})
}
