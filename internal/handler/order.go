package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/service"
)

// OrderHandler serves checkout and order history for the current owner, and
// the admin order views.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// HandleCheckout places an order for the whole cart.
//
// HTTP: POST /api/orders
// REQUEST BODY: {"shippingAddress": {"firstName": "...", ..., "country": "..."}}
func (h *OrderHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingAddress *model.ShippingAddress `json:"shippingAddress"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.ShippingAddress == nil {
		writeError(w, h.logger, apperror.ValidationFailed("shippingAddress", "shippingAddress is required"))
		return
	}

	order, err := h.orders.Checkout(r.Context(), ownerFrom(r), *req.ShippingAddress)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// HandleList returns the owner's orders, newest first.
//
// HTTP: GET /api/orders
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForOwner(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleGet returns one of the owner's orders.
//
// HTTP: GET /api/orders/{id}
func (h *OrderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetForOwner(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleListAll returns every order with its items.
//
// HTTP: GET /api/admin/orders (admin)
func (h *OrderHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleUpdateStatus sets an order's status.
//
// HTTP: PUT /api/admin/orders/{id}/status (admin)
// REQUEST BODY: {"status": "shipped"}
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
