package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

type placeOrderRequest struct {
	ShippingAddress *model.PostalAddress `json:"shipping_address"`
}

// handlePlaceOrder places an order from the session's cart.
// POST /orders
func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ShippingAddress == nil {
		h.writeError(w, model.NewValidationError("shipping_address", "required"))
		return
	}

	h.logger.InfoContext(ctx, "placing order",
		slog.Bool("anonymous", id.Anonymous()),
	)

	placed, err := h.svc.PlaceOrder(ctx, id, *req.ShippingAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, placed)
}

// handleListOrders lists the signed-in user's orders.
// GET /orders
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := h.svc.Orders(r.Context(), id)
	h.writeList(w, r, orders, len(orders), err)
}

// handleGetOrder returns one order.
// GET /orders/{id}
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	o, err := h.svc.Order(r.Context(), id, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}
