package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/users"
)

// UsersHandler covers the profile-adjacent surface: addresses, wishlist and
// cart, always scoped to the authenticated user.
type UsersHandler struct {
	Users *users.Repo
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Get("/me", h.me)

	r.Get("/addresses", h.listAddresses)
	r.Post("/addresses", h.addAddress)
	r.Put("/addresses/{id}", h.updateAddress)
	r.Delete("/addresses/{id}", h.deleteAddress)

	r.Get("/wishlist", h.getWishlist)
	r.Post("/wishlist/{productId}", h.addToWishlist)
	r.Delete("/wishlist/{productId}", h.removeFromWishlist)

	r.Get("/cart", h.getCart)
	r.Post("/cart", h.addToCart)
	r.Put("/cart", h.setCartQty)
	r.Delete("/cart/{productId}", h.removeFromCart)
	r.Delete("/cart", h.clearCart)
}

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 3*time.Second)
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": UserFrom(r.Context())})
}

// ---- addresses ----

type addressReq struct {
	Label         string `json:"label"`
	FullName      string `json:"full_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	ZipCode       string `json:"zip_code"`
	Phone         string `json:"phone"`
	IsDefault     bool   `json:"is_default"`
}

func (a addressReq) validate() error {
	switch {
	case a.FullName == "":
		return apperrs.Invalid("full_name", "required")
	case a.StreetAddress == "":
		return apperrs.Invalid("street_address", "required")
	case a.City == "":
		return apperrs.Invalid("city", "required")
	case a.State == "":
		return apperrs.Invalid("state", "required")
	case a.ZipCode == "":
		return apperrs.Invalid("zip_code", "required")
	}
	return nil
}

func (a addressReq) toModel() users.Address {
	return users.Address{
		Label: a.Label, FullName: a.FullName, StreetAddress: a.StreetAddress,
		City: a.City, State: a.State, Country: a.Country,
		ZipCode: a.ZipCode, Phone: a.Phone, IsDefault: a.IsDefault,
	}
}

func (h *UsersHandler) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	out, err := h.Users.ListAddresses(ctx, UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": out})
}

func (h *UsersHandler) addAddress(w http.ResponseWriter, r *http.Request) {
	var req addressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	a, err := h.Users.AddAddress(ctx, UserFrom(r.Context()).ID, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"address": a})
}

func (h *UsersHandler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	a, err := h.Users.UpdateAddress(ctx, UserFrom(r.Context()).ID, chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": a})
}

func (h *UsersHandler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.DeleteAddress(ctx, UserFrom(r.Context()).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "address deleted"})
}

// ---- wishlist ----

func (h *UsersHandler) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	ps, err := h.Users.ListWishlist(ctx, UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wishlist": ps})
}

func (h *UsersHandler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.AddToWishlist(ctx, UserFrom(r.Context()).ID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "product added to wishlist"})
}

func (h *UsersHandler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.RemoveFromWishlist(ctx, UserFrom(r.Context()).ID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product removed from wishlist"})
}

// ---- cart ----

type cartReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *UsersHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	items, err := h.Users.GetCart(ctx, UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []users.CartItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *UsersHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if req.ProductID == "" {
		writeError(w, r, apperrs.Invalid("product_id", "required"))
		return
	}
	if req.Qty <= 0 {
		req.Qty = 1
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.AddToCart(ctx, UserFrom(r.Context()).ID, req.ProductID, req.Qty); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "added to cart"})
}

func (h *UsersHandler) setCartQty(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrs.Invalid("body", "invalid json"))
		return
	}
	if req.ProductID == "" {
		writeError(w, r, apperrs.Invalid("product_id", "required"))
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.SetCartQty(ctx, UserFrom(r.Context()).ID, req.ProductID, req.Qty); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart updated"})
}

func (h *UsersHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.RemoveFromCart(ctx, UserFrom(r.Context()).ID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed from cart"})
}

func (h *UsersHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.Users.ClearCart(ctx, UserFrom(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
