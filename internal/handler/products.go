package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/review"
	"storefront/internal/storefront"
)

// catalogInfo describes the browsing options and pricing rules.
type catalogInfo struct {
	Categories []model.Category `json:"categories"`
	AgeGroups  []string         `json:"age_groups"`
	SortOrders []string         `json:"sort_orders"`
	Pricing    pricingInfo      `json:"pricing"`
}

type pricingInfo struct {
	FreeShippingOver decimal.Decimal `json:"free_shipping_over"`
	FlatShipping     decimal.Decimal `json:"flat_shipping"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
}

// handleCatalogInfo returns the catalog discovery document.
// GET /catalog
func (h *Handler) handleCatalogInfo(w http.ResponseWriter, r *http.Request) {
	info := catalogInfo{
		Categories: model.Categories,
		SortOrders: []string{
			string(catalog.SortFeatured),
			string(catalog.SortPriceLow),
			string(catalog.SortPriceHigh),
			string(catalog.SortRating),
			string(catalog.SortNewest),
		},
	}
	for _, g := range catalog.AgeGroups {
		info.AgeGroups = append(info.AgeGroups, g.Label)
	}
	pricing := h.svc.Pricing()
	info.Pricing = pricingInfo{
		FreeShippingOver: pricing.FreeShippingOver,
		FlatShipping:     pricing.FlatShipping,
		TaxRate:          pricing.TaxRate,
	}
	h.writeJSON(w, http.StatusOK, info)
}

// handleListProducts searches, filters and sorts the catalog.
// GET /products?q=&category=&age=&min_price=&max_price=&in_stock=&sort=
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	products, err := h.svc.Catalog(r.Context(), q)
	h.writeList(w, r, products, len(products), err)
}

// parseQuery maps listing query parameters. category and age may repeat
// or hold comma-separated values.
func parseQuery(values url.Values) (storefront.Query, error) {
	q := storefront.Query{Text: strings.TrimSpace(values.Get("q"))}

	for _, c := range splitMulti(values["category"]) {
		q.Filter.Categories = append(q.Filter.Categories, model.Category(c))
	}
	for _, label := range splitMulti(values["age"]) {
		g, err := catalog.ParseAgeGroup(label)
		if err != nil {
			return q, err
		}
		q.Filter.AgeGroups = append(q.Filter.AgeGroups, g)
	}

	var err error
	if q.Filter.MinPrice, err = parsePrice(values, "min_price"); err != nil {
		return q, err
	}
	if q.Filter.MaxPrice, err = parsePrice(values, "max_price"); err != nil {
		return q, err
	}

	if raw := values.Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return q, model.NewValidationError("in_stock", "must be a boolean")
		}
		q.Filter.InStockOnly = inStock
	}

	if q.Sort, err = catalog.ParseSortOrder(values.Get("sort")); err != nil {
		return q, err
	}
	return q, nil
}

func parsePrice(values url.Values, key string) (*decimal.Decimal, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, model.NewValidationError(key, "must be a number")
	}
	return &d, nil
}

// splitMulti flattens repeated and comma-separated values. Category names
// contain no commas.
func splitMulti(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// handleFeatured lists featured products.
// GET /products/featured
func (h *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Featured(r.Context())
	h.writeList(w, r, products, len(products), err)
}

// handleDeals lists products on sale.
// GET /products/deals
func (h *Handler) handleDeals(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Deals(r.Context())
	h.writeList(w, r, products, len(products), err)
}

// handleGetProduct returns one product.
// GET /products/{id}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.svc.Product(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

// handleSimilar lists products similar to one.
// GET /products/{id}/similar?limit=
func (h *Handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	products, err := h.svc.Similar(r.Context(), id, limit)
	h.writeList(w, r, products, len(products), err)
}

type reviewsResponse struct {
	Items   []model.Review `json:"items"`
	Summary review.Summary `json:"summary"`
	Error   *errorBody     `json:"error,omitempty"`
}

// handleListReviews lists a product's reviews with their summary.
// GET /products/{id}/reviews
func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	reviews, summary, err := h.svc.Reviews(r.Context(), id)
	if err != nil && !model.IsRemoteFailure(err) {
		h.writeError(w, err)
		return
	}
	resp := reviewsResponse{Items: reviews, Summary: summary}
	if err != nil {
		apiErr := h.toAPIError(err)
		resp.Error = &errorBody{Code: apiErr.Code, Message: apiErr.Message}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type createReviewRequest struct {
	UserName string `json:"user_name"`
	Rating   int    `json:"rating"`
	Title    string `json:"title"`
	Comment  string `json:"comment"`
}

// handleCreateReview adds a review.
// POST /products/{id}/reviews
func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "creating review",
		slog.Int64("product_id", id),
		slog.Int("rating", req.Rating),
	)

	created, err := h.svc.AddReview(ctx, model.Review{
		ProductID: id,
		UserName:  req.UserName,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}
