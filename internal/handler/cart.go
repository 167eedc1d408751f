package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/service"
)

var errQuantityRequired = apperror.ValidationFailed("quantity", "quantity is required")

// CartHandler serves the shopper's cart. Its routes sit behind
// Gate.RequireSession, so there is always an owner: the user when logged
// in, the anonymous session otherwise.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// HandleGet returns the cart lines with live product data.
//
// HTTP: GET /api/cart
func (h *CartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.Get(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAdd adds a product, incrementing its line if already present.
//
// HTTP: POST /api/cart
// REQUEST BODY: {"productId": "...", "quantity": 2}
func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		Quantity  *int   `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	// Quantity defaults to one, as the product page's "Add to cart" sends none.
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.carts.Add(r.Context(), ownerFrom(r), req.ProductID, qty)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleUpdate overwrites a line's quantity. Zero or less removes the line
// and answers 204.
//
// HTTP: PUT /api/cart/{id}
// REQUEST BODY: {"quantity": 3}
func (h *CartHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, h.logger, errQuantityRequired)
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleRemove deletes one line.
//
// HTTP: DELETE /api/cart/{id}
func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Remove(r.Context(), ownerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear empties the cart.
//
// HTTP: DELETE /api/cart
func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), ownerFrom(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownerFrom returns the request's cart/order owner. Without an identity it
// returns the zero Owner, which the services reject as unauthenticated.
func ownerFrom(r *http.Request) model.Owner {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return model.Owner{}
	}
	return id.Owner()
}
