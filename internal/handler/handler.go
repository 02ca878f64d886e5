// Package handler provides HTTP handlers for the storefront API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/storefront"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc    *storefront.Service
	logger *slog.Logger
}

// New creates a new Handler with the given service and logger.
func New(svc *storefront.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /catalog", h.handleCatalogInfo)
	mux.HandleFunc("GET /products", h.handleListProducts)
	mux.HandleFunc("GET /products/featured", h.handleFeatured)
	mux.HandleFunc("GET /products/deals", h.handleDeals)
	mux.HandleFunc("GET /products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /products/{id}/similar", h.handleSimilar)
	mux.HandleFunc("GET /products/{id}/reviews", h.handleListReviews)
	mux.HandleFunc("POST /products/{id}/reviews", h.handleCreateReview)

	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)
	mux.HandleFunc("POST /cart/items", h.handleAddCartItem)
	mux.HandleFunc("PUT /cart/items/{id}", h.handleSetCartQuantity)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveCartItem)
	mux.HandleFunc("GET /cart/recommendations", h.handleCartRecommendations)

	// Wishlist
	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)
	mux.HandleFunc("DELETE /wishlist", h.handleClearWishlist)
	mux.HandleFunc("POST /wishlist/{id}/toggle", h.handleToggleWishlist)

	// Orders
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("POST /orders", h.handlePlaceOrder)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := h.toAPIError(err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

func (h *Handler) toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	h.logger.Error("internal error", slog.String("error", err.Error()))
	return &model.APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
}

// writeList sends a listing. A remote failure on a read path still
// answers 200 with an empty listing and reports the failure alongside it;
// any other error is a plain error response.
func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, items interface{}, count int, err error) {
	if err != nil && !model.IsRemoteFailure(err) {
		h.writeError(w, err)
		return
	}

	resp := listResponse{Items: items, Count: count}
	if err != nil {
		apiErr := h.toAPIError(err)
		h.logger.WarnContext(r.Context(), "serving degraded listing",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		resp.Error = &errorBody{Code: apiErr.Code, Message: apiErr.Message}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listResponse wraps every listing endpoint.
type listResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
	Error *errorBody  `json:"error,omitempty"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	// Limit request body size to prevent DoS
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// queryLimit parses ?limit=, returning 0 (engine default) when absent.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, model.NewValidationError("limit", "must be a positive integer")
	}
	return limit, nil
}

// identity returns the identity resolved by session.Middleware.
func identity(r *http.Request) (session.Identity, error) {
	id, ok := session.FromContext(r.Context())
	if !ok {
		return session.Identity{}, model.NewValidationError("session", "missing "+session.HeaderName)
	}
	return id, nil
}
