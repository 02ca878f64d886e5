package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

// handleGetCart returns the cart with current product data and totals.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.svc.CartView(r.Context(), id.Owner())
	if err != nil && !model.IsRemoteFailure(err) {
		h.writeError(w, err)
		return
	}
	resp := cartResponse{CartView: view}
	if err != nil {
		apiErr := h.toAPIError(err)
		resp.Error = &errorBody{Code: apiErr.Code, Message: apiErr.Message}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type cartResponse struct {
	model.CartView
	Error *errorBody `json:"error,omitempty"`
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.ClearCart(r.Context(), id.Owner()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id"`
}

type cartItemResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// handleAddCartItem adds one unit of a product.
// POST /cart/items
func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductID <= 0 {
		h.writeError(w, model.NewValidationError("product_id", "must be a positive integer"))
		return
	}

	qty, err := h.svc.AddToCart(ctx, id.Owner(), req.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "added to cart",
		slog.Int64("product_id", req.ProductID),
		slog.Int("quantity", qty),
	)
	h.writeJSON(w, http.StatusOK, cartItemResponse{ProductID: req.ProductID, Quantity: qty})
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// handleSetCartQuantity sets the quantity of a cart line.
// PUT /cart/items/{id}
func (h *Handler) handleSetCartQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, model.NewValidationError("quantity", "required"))
		return
	}

	if err := h.svc.SetCartQuantity(r.Context(), id.Owner(), productID, *req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cartItemResponse{ProductID: productID, Quantity: *req.Quantity})
}

// handleRemoveCartItem drops a product from the cart.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.RemoveFromCart(r.Context(), id.Owner(), productID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCartRecommendations lists cross-sell suggestions for the cart.
// GET /cart/recommendations?limit=
func (h *Handler) handleCartRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	products, err := h.svc.CartRecommendations(r.Context(), id.Owner(), limit)
	h.writeList(w, r, products, len(products), err)
}

// handleGetWishlist lists saved products.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	products, err := h.svc.Wishlist(r.Context(), id.Owner())
	h.writeList(w, r, products, len(products), err)
}

// handleClearWishlist empties the wishlist.
// DELETE /wishlist
func (h *Handler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.ClearWishlist(r.Context(), id.Owner()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleResponse struct {
	ProductID int64                `json:"product_id"`
	Action    model.WishlistAction `json:"action"`
}

// handleToggleWishlist adds or removes a product.
// POST /wishlist/{id}/toggle
func (h *Handler) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	productID, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	action, err := h.svc.ToggleWishlist(r.Context(), id.Owner(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toggleResponse{ProductID: productID, Action: action})
}
