package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// GuestUserID owns orders placed without an identity.
const GuestUserID = "guest"

// Order is a placed order. Line prices are frozen at placement time.
type Order struct {
	ID                int64          `json:"id"`
	Number            string         `json:"number"` // ORD-<unix millis>
	UserID            string         `json:"user_id"`
	Items             []OrderItem    `json:"items"`
	Totals            CheckoutTotals `json:"totals"`
	Status            OrderStatus    `json:"status"`
	ShippingAddress   PostalAddress  `json:"shipping_address"`
	OrderDate         time.Time      `json:"order_date"`
	EstimatedDelivery time.Time      `json:"estimated_delivery"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PostalAddress is where an order ships.
type PostalAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Validate checks that the required address fields are present.
func (a *PostalAddress) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"email", a.Email},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError("shipping_address."+r.field, "required")
		}
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return NewValidationError("shipping_address.email", "must be a valid email address")
	}
	return nil
}

// Review is a customer review of a product.
type Review struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	UserName         string    `json:"user_name"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Comment          string    `json:"comment"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	HelpfulCount     int       `json:"helpful_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks rating range and required text.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return NewValidationError("rating", "must be between 1 and 5")
	}
	if strings.TrimSpace(r.UserName) == "" {
		return NewValidationError("user_name", "required")
	}
	if strings.TrimSpace(r.Comment) == "" {
		return NewValidationError("comment", "required")
	}
	return nil
}
