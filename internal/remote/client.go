// Package remote implements the storefront stores on top of a hosted
// record-store service.
//
// =============================================================================
// RECORD STORE PROTOCOL
// =============================================================================
//
// The backend exposes tables of JSON records over REST:
//
//	GET  {base}/tables/{table}/records?limit=&offset=&{field}={value}
//	GET  {base}/tables/{table}/records/{id}
//	POST {base}/tables/{table}/records        {"records": [...]}
//
// Every response carries a "success" flag; inserts report per-record
// results. Record fields use the service's naming (name_c, price_c, Tags,
// ...) and embedded documents (images, order items) are JSON strings.
// Everything is mapped to canonical model types in this package, so nothing
// above the adapter layer sees the wire shape.
//
// Error mapping: 404 or a missing record → NOT_FOUND; transport failures,
// other error statuses and success=false → REMOTE_FAILURE.
// =============================================================================
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/transport"
)

const (
	serviceName     = "record store"
	defaultPageSize = 1000
	maxPages        = 50
)

// Config holds record store connection settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration // default 10s
	Fingerprint bool          // present a browser TLS fingerprint
	PageSize    int           // default 1000
}

// Client talks to the record store. It implements adapter.Backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("record store URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid record store URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return &Client{
		httpClient: transport.NewClient(cfg.Timeout, cfg.Fingerprint),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
	}, nil
}

// === Products ===

// GetAll returns every product, following pagination.
func (c *Client) GetAll(ctx context.Context) ([]model.Product, error) {
	records, err := listAll[productRecord](ctx, c, tableProducts, nil)
	if err != nil {
		return nil, err
	}
	return toProducts(records), nil
}

// GetByID returns one product.
func (c *Client) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	record, err := getOne[productRecord](ctx, c, tableProducts, id, "product")
	if err != nil {
		return nil, err
	}
	p := record.toProduct()
	return &p, nil
}

// GetByCategory filters products server side.
func (c *Client) GetByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	records, err := listAll[productRecord](ctx, c, tableProducts, url.Values{"category_c": {string(category)}})
	if err != nil {
		return nil, err
	}
	return toProducts(records), nil
}

// Search matches name, brand, description and category. The record store
// cannot OR conditions across fields in a single query, so matching
// happens here over the full listing.
func (c *Client) Search(ctx context.Context, text string) ([]model.Product, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(all))
	for i := range all {
		if catalog.Matches(&all[i], text) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// === Orders ===

// ListOrders returns a user's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	records, err := listAll[orderRecord](ctx, c, tableOrders, url.Values{"user_id_c": {userID}})
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(records))
	for _, r := range records {
		o, err := r.toOrder()
		if err != nil {
			return nil, model.NewRemoteError(serviceName, err)
		}
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(orders[j].OrderDate)
	})
	return orders, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	record, err := getOne[orderRecord](ctx, c, tableOrders, id, "order")
	if err != nil {
		return nil, err
	}
	o, err := record.toOrder()
	if err != nil {
		return nil, model.NewRemoteError(serviceName, err)
	}
	return &o, nil
}

// CreateOrder inserts an order and returns it as stored.
func (c *Client) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	record, err := fromOrder(order)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	created, err := createOne(ctx, c, tableOrders, record)
	if err != nil {
		return nil, err
	}
	o, err := created.toOrder()
	if err != nil {
		return nil, model.NewRemoteError(serviceName, err)
	}
	return &o, nil
}

// === Reviews ===

// ReviewsByProduct returns a product's reviews, newest first.
func (c *Client) ReviewsByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	records, err := listAll[reviewRecord](ctx, c, tableReviews,
		url.Values{"product_id_c": {strconv.FormatInt(productID, 10)}})
	if err != nil {
		return nil, err
	}

	reviews := make([]model.Review, 0, len(records))
	for _, r := range records {
		reviews = append(reviews, r.toReview())
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

// CreateReview validates and inserts a review.
func (c *Client) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	if err := review.Validate(); err != nil {
		return nil, err
	}
	created, err := createOne(ctx, c, tableReviews, fromReview(review))
	if err != nil {
		return nil, err
	}
	rv := created.toReview()
	return &rv, nil
}

// === HTTP plumbing ===

// listAll pages through a table until a short page or the reported total.
func listAll[T any](ctx context.Context, c *Client, table string, filter url.Values) ([]T, error) {
	var all []T
	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		for k, v := range filter {
			query[k] = v
		}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("offset", strconv.Itoa(page*c.pageSize))

		var resp listResponse[T]
		if err := c.do(ctx, http.MethodGet, c.tablePath(table)+"?"+query.Encode(), nil, &resp, table); err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, model.NewRemoteError(serviceName, fmt.Errorf("listing %s: %s", table, resp.Message))
		}

		all = append(all, resp.Data...)
		if len(resp.Data) < c.pageSize || (resp.Total > 0 && len(all) >= resp.Total) {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

func getOne[T any](ctx context.Context, c *Client, table string, id int64, resource string) (*T, error) {
	var resp getResponse[T]
	path := c.tablePath(table) + "/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, resource); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, model.NewNotFoundError(resource)
	}
	return resp.Data, nil
}

func createOne[T any](ctx context.Context, c *Client, table string, record T) (*T, error) {
	var resp createResponse[T]
	body := createRequest[T]{Records: []T{record}}
	if err := c.do(ctx, http.MethodPost, c.tablePath(table), body, &resp, table); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, model.NewRemoteError(serviceName, fmt.Errorf("creating %s: %s", table, resp.Message))
	}
	for _, r := range resp.Results {
		if !r.Success {
			return nil, model.NewRemoteError(serviceName, fmt.Errorf("creating %s: %s", table, r.Message))
		}
		if r.Data != nil {
			return r.Data, nil
		}
	}
	return nil, model.NewRemoteError(serviceName, fmt.Errorf("creating %s: no record returned", table))
}

func (c *Client) tablePath(table string) string {
	return c.baseURL + "/tables/" + table + "/records"
}

// do sends a JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, target string, body, out interface{}, resource string) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return model.NewInternalError(fmt.Errorf("marshaling request: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return model.NewInternalError(fmt.Errorf("creating request: %w", err))
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewRemoteError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewRemoteError(serviceName, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody, resource)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return model.NewRemoteError(serviceName, fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// parseErrorResponse converts an error status to APIError.
func parseErrorResponse(statusCode int, body []byte, resource string) error {
	var errResp errorResponse
	json.Unmarshal(body, &errResp) // Best effort parse

	if statusCode == http.StatusNotFound {
		return model.NewNotFoundError(resource)
	}
	msg := errResp.Message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return model.NewRemoteError(serviceName, fmt.Errorf("status %d: %s", statusCode, msg))
}

// Ensure Client implements Backend
var _ adapter.Backend = (*Client)(nil)
