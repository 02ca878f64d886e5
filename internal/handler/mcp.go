// MCP transport handler for the storefront using the official MCP Go SDK.
// Exposes catalog browsing, recommendations, cart and wishlist as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/storefront"
)

// === MCP Session ===
// MCP requests carry no Storefront-Session header; tools that touch a cart
// or wishlist take the same values as an argument instead. An empty
// session_id starts a new anonymous session, returned in the result.

// SessionArg identifies the shopper in MCP tool calls.
type SessionArg struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session id from a previous call; omit to start a new session"`
	UserID    string `json:"user_id,omitempty" jsonschema:"signed-in user id"`
}

// === MCP Tool Input/Output Types ===

// SearchProductsInput is the input schema for search_products tool.
type SearchProductsInput struct {
	Query    string `json:"query,omitempty" jsonschema:"text matched against name, brand, description and category"`
	Category string `json:"category,omitempty" jsonschema:"exact category name"`
	Sort     string `json:"sort,omitempty" jsonschema:"featured, price-low, price-high, rating or newest"`
	InStock  bool   `json:"in_stock,omitempty" jsonschema:"only products with stock"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

// ProductIDInput is the input schema for get_product tool.
type ProductIDInput struct {
	ID int64 `json:"id" jsonschema:"product ID"`
}

// SimilarProductsInput is the input schema for similar_products tool.
type SimilarProductsInput struct {
	ID    int64 `json:"id" jsonschema:"product ID"`
	Limit int   `json:"limit,omitempty" jsonschema:"maximum number of results (default 4)"`
}

// FrequentlyBoughtInput is the input schema for frequently_bought_together tool.
type FrequentlyBoughtInput struct {
	ProductIDs []int64     `json:"product_ids,omitempty" jsonschema:"products to find companions for; defaults to the session's cart"`
	Session    *SessionArg `json:"session,omitempty" jsonschema:"shopper session"`
	Limit      int         `json:"limit,omitempty" jsonschema:"maximum number of results (default 4)"`
}

// CartProductInput is the input schema for add_to_cart, remove_from_cart
// and toggle_wishlist tools.
type CartProductInput struct {
	Session   SessionArg `json:"session" jsonschema:"shopper session"`
	ProductID int64      `json:"product_id" jsonschema:"product ID"`
}

// ViewCartInput is the input schema for view_cart tool.
type ViewCartInput struct {
	Session SessionArg `json:"session" jsonschema:"shopper session"`
}

// ProductSummary is a product as returned by MCP tools. Amounts are
// decimal strings.
type ProductSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Price       string   `json:"price"`
	SalePrice   string   `json:"sale_price,omitempty"`
	Stock       int      `json:"stock_quantity"`
	Rating      float64  `json:"rating"`
	AgeRange    string   `json:"age_range"`
	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
}

// ProductList is the output of listing tools.
type ProductList struct {
	Products []ProductSummary `json:"products"`
	Count    int              `json:"count"`
	Warning  string           `json:"warning,omitempty"`
}

// CartLineOutput is one cart line.
type CartLineOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// CartOutput is the output of cart tools.
type CartOutput struct {
	SessionID  string           `json:"session_id"`
	Lines      []CartLineOutput `json:"lines"`
	ItemCount  int              `json:"item_count"`
	Subtotal   string           `json:"subtotal"`
	Shipping   string           `json:"shipping"`
	Tax        string           `json:"tax"`
	GrandTotal string           `json:"grand_total"`
	Warning    string           `json:"warning,omitempty"`
}

// ToggleWishlistOutput is the output of toggle_wishlist tool.
type ToggleWishlistOutput struct {
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
	Action    string `json:"action"`
}

// NewMCPServer creates an MCP server with storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Toy storefront. Search the catalog, get recommendations, " +
				"and manage a shopper's cart and wishlist. Reuse the returned session_id.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_products",
		Description: "Search and filter the product catalog.",
	}, h.mcpSearchProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get one product by ID.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "similar_products",
		Description: "Products similar to a given product: same category first, then closest price.",
	}, h.mcpSimilarProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "frequently_bought_together",
		Description: "Cross-sell suggestions for a set of products or the session's cart.",
	}, h.mcpFrequentlyBought)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one unit of a product to the shopper's cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a product from the shopper's cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_cart",
		Description: "Show the shopper's cart with totals.",
	}, h.mcpViewCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_wishlist",
		Description: "Add a product to the shopper's wishlist, or remove it if already saved.",
	}, h.mcpToggleWishlist)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchProductsInput,
) (*mcp.CallToolResult, *ProductList, error) {
	q := storefront.Query{Text: input.Query}
	if input.Category != "" {
		q.Filter.Categories = []model.Category{model.Category(input.Category)}
	}
	q.Filter.InStockOnly = input.InStock

	var err error
	if q.Sort, err = catalog.ParseSortOrder(input.Sort); err != nil {
		return nil, nil, h.mcpError(err)
	}

	products, err := h.svc.Catalog(ctx, q)
	if input.Limit > 0 && len(products) > input.Limit {
		products = products[:input.Limit]
	}
	return h.productList(products, err)
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductIDInput,
) (*mcp.CallToolResult, *ProductSummary, error) {
	if input.ID <= 0 {
		return nil, nil, fmt.Errorf("id is required")
	}

	product, err := h.svc.Product(ctx, input.ID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	summary := toSummary(product)
	summary.Description = product.Description
	return nil, &summary, nil
}

func (h *Handler) mcpSimilarProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SimilarProductsInput,
) (*mcp.CallToolResult, *ProductList, error) {
	if input.ID <= 0 {
		return nil, nil, fmt.Errorf("id is required")
	}

	products, err := h.svc.Similar(ctx, input.ID, input.Limit)
	return h.productList(products, err)
}

func (h *Handler) mcpFrequentlyBought(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input FrequentlyBoughtInput,
) (*mcp.CallToolResult, *ProductList, error) {
	if len(input.ProductIDs) > 0 {
		products, err := h.svc.FrequentlyBoughtWith(ctx, input.ProductIDs, input.Limit)
		return h.productList(products, err)
	}
	if input.Session == nil || (input.Session.SessionID == "" && input.Session.UserID == "") {
		return nil, nil, fmt.Errorf("product_ids or session is required")
	}

	id, err := session.Resolve(input.Session.SessionID, input.Session.UserID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	products, err := h.svc.CartRecommendations(ctx, id.Owner(), input.Limit)
	return h.productList(products, err)
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartProductInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id is required")
	}
	id, err := session.Resolve(input.Session.SessionID, input.Session.UserID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	if _, err := h.svc.AddToCart(ctx, id.Owner(), input.ProductID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.cartOutput(ctx, id)
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartProductInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id is required")
	}
	id, err := session.Resolve(input.Session.SessionID, input.Session.UserID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	if err := h.svc.RemoveFromCart(ctx, id.Owner(), input.ProductID); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.cartOutput(ctx, id)
}

func (h *Handler) mcpViewCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ViewCartInput,
) (*mcp.CallToolResult, *CartOutput, error) {
	id, err := session.Resolve(input.Session.SessionID, input.Session.UserID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return h.cartOutput(ctx, id)
}

func (h *Handler) mcpToggleWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CartProductInput,
) (*mcp.CallToolResult, *ToggleWishlistOutput, error) {
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id is required")
	}
	id, err := session.Resolve(input.Session.SessionID, input.Session.UserID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	action, err := h.svc.ToggleWishlist(ctx, id.Owner(), input.ProductID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &ToggleWishlistOutput{
		SessionID: id.SessionID,
		ProductID: input.ProductID,
		Action:    string(action),
	}, nil
}

// === Output mapping ===

// productList builds a listing result. Remote failures degrade to an empty
// list with a warning.
func (h *Handler) productList(products []model.Product, err error) (*mcp.CallToolResult, *ProductList, error) {
	if err != nil && !model.IsRemoteFailure(err) {
		return nil, nil, h.mcpError(err)
	}

	out := &ProductList{Products: make([]ProductSummary, 0, len(products))}
	for i := range products {
		out.Products = append(out.Products, toSummary(&products[i]))
	}
	out.Count = len(out.Products)
	if err != nil {
		out.Warning = h.mcpError(err).Error()
	}
	return nil, out, nil
}

func (h *Handler) cartOutput(ctx context.Context, id session.Identity) (*mcp.CallToolResult, *CartOutput, error) {
	view, err := h.svc.CartView(ctx, id.Owner())
	if err != nil && !model.IsRemoteFailure(err) {
		return nil, nil, h.mcpError(err)
	}

	out := &CartOutput{
		SessionID:  id.SessionID,
		Lines:      make([]CartLineOutput, 0, len(view.Lines)),
		ItemCount:  view.ItemCount,
		Subtotal:   model.FormatAmount(view.Totals.Subtotal),
		Shipping:   model.FormatAmount(view.Totals.Shipping),
		Tax:        model.FormatAmount(view.Totals.Tax),
		GrandTotal: model.FormatAmount(view.Totals.GrandTotal),
	}
	for _, line := range view.Lines {
		out.Lines = append(out.Lines, CartLineOutput{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: model.FormatAmount(line.Product.EffectivePrice()),
			LineTotal: model.FormatAmount(line.LineTotal),
		})
	}
	if err != nil {
		out.Warning = h.mcpError(err).Error()
	}
	return nil, out, nil
}

func toSummary(p *model.Product) ProductSummary {
	s := ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: string(p.Category),
		Price:    model.FormatAmount(p.Price),
		Stock:    p.StockQuantity,
		Rating:   p.Rating,
		AgeRange: fmt.Sprintf("%d-%d", p.AgeMin, p.AgeMax),
		Tags:     p.Tags,
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if p.OnSale() {
		s.SalePrice = model.FormatAmount(*p.SalePrice)
	}
	return s
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}
