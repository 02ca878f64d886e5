package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartEntry is one product line in a cart. Quantity is at least 1.
type CartEntry struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// WishlistEntry is one saved product.
type WishlistEntry struct {
	ProductID int64     `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

// WishlistAction reports what a toggle did.
type WishlistAction string

const (
	WishlistAdded   WishlistAction = "added"
	WishlistRemoved WishlistAction = "removed"
)

// CheckoutTotals is derived from a cart on every read and never stored.
// Amounts keep full precision; use Rounded for presentation.
type CheckoutTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Rounded returns a copy with every amount rounded to cents.
func (t CheckoutTotals) Rounded() CheckoutTotals {
	return CheckoutTotals{
		Subtotal:   Present(t.Subtotal),
		Shipping:   Present(t.Shipping),
		Tax:        Present(t.Tax),
		GrandTotal: Present(t.GrandTotal),
	}
}

// FreeShipping reports whether the shipping charge was waived.
func (t CheckoutTotals) FreeShipping() bool {
	return t.Shipping.IsZero()
}

// CartLine is a cart entry joined with its product for display.
type CartLine struct {
	CartEntry
	Product   *Product        `json:"product"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the full cart as returned to callers.
type CartView struct {
	Lines     []CartLine     `json:"lines"`
	ItemCount int            `json:"item_count"`
	Totals    CheckoutTotals `json:"totals"`
}
