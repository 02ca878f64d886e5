package remote

import (
	"github.com/shopspring/decimal"
)

// Table names in the hosted record store.
const (
	tableProducts = "product_c"
	tableOrders   = "order_c"
	tableReviews  = "review_c"
)

// listResponse is the envelope for record lists.
type listResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    []T    `json:"data"`
	Total   int    `json:"total,omitempty"`
}

// getResponse is the envelope for a single record.
type getResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data"`
}

// createRequest wraps records to insert.
type createRequest[T any] struct {
	Records []T `json:"records"`
}

// createResponse reports per-record outcomes of an insert.
type createResponse[T any] struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Results []createResult[T] `json:"results"`
}

type createResult[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data"`
}

// errorResponse is returned with 4xx/5xx statuses.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// productRecord is a product_c row. Prices decode from JSON numbers or
// strings. Images and dimensions are JSON documents stored as strings;
// tags are one comma-separated string.
type productRecord struct {
	ID            int64            `json:"Id"`
	Name          string           `json:"name_c"`
	Brand         string           `json:"brand_c"`
	Description   string           `json:"description_c"`
	Category      string           `json:"category_c"`
	Price         decimal.Decimal  `json:"price_c"`
	SalePrice     *decimal.Decimal `json:"sale_price_c"`
	StockQuantity int              `json:"stock_quantity_c"`
	AgeMin        int              `json:"age_min_c"`
	AgeMax        int              `json:"age_max_c"`
	Rating        float64          `json:"rating_c"`
	ReviewCount   int              `json:"review_count_c"`
	Tags          string           `json:"Tags"`
	IsFeatured    bool             `json:"is_featured_c"`
	CreatedAt     string           `json:"created_at_c"`
	Images        string           `json:"images_c"`
	Dimensions    string           `json:"dimensions_c"`
	Weight        string           `json:"weight_c"`
	Material      string           `json:"material_c"`
}

// orderRecord is an order_c row. Items and the shipping address are JSON
// documents stored as strings.
type orderRecord struct {
	ID                int64            `json:"Id,omitempty"`
	Name              string           `json:"Name"` // order number
	UserID            string           `json:"user_id_c"`
	Items             string           `json:"items_c"`
	Subtotal          *decimal.Decimal `json:"subtotal_c,omitempty"`
	Shipping          *decimal.Decimal `json:"shipping_c,omitempty"`
	Tax               *decimal.Decimal `json:"tax_c,omitempty"`
	Total             decimal.Decimal  `json:"total_c"`
	Status            string           `json:"status_c"`
	ShippingAddress   string           `json:"shipping_address_c,omitempty"`
	OrderDate         string           `json:"order_date_c"`
	EstimatedDelivery string           `json:"estimated_delivery_c"`
}

// orderItemRecord is one element of orderRecord.Items.
type orderItemRecord struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// reviewRecord is a review_c row.
type reviewRecord struct {
	ID               int64  `json:"Id,omitempty"`
	Name             string `json:"Name,omitempty"`
	ProductID        int64  `json:"product_id_c"`
	UserID           string `json:"user_id_c,omitempty"`
	UserName         string `json:"user_name_c"`
	Rating           int    `json:"rating_c"`
	Title            string `json:"title_c"`
	Comment          string `json:"comment_c"`
	VerifiedPurchase bool   `json:"is_verified_purchase_c"`
	HelpfulCount     int    `json:"helpful_count_c"`
	CreatedAt        string `json:"created_at_c"`
}
