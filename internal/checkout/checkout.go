// Package checkout derives order totals from cart entries.
package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// Default pricing rules.
var (
	DefaultFreeShippingOver = decimal.RequireFromString("50.00")
	DefaultFlatShipping     = decimal.RequireFromString("9.99")
	DefaultTaxRate          = decimal.RequireFromString("0.08")
)

// ProductLookup resolves a product by ID. adapter.ProductRepository
// satisfies it.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// Calculator computes CheckoutTotals. The zero value is not usable; call New.
type Calculator struct {
	FreeShippingOver decimal.Decimal // shipping is waived when subtotal exceeds this
	FlatShipping     decimal.Decimal
	TaxRate          decimal.Decimal
}

// New returns a Calculator with the default pricing rules.
func New() *Calculator {
	return &Calculator{
		FreeShippingOver: DefaultFreeShippingOver,
		FlatShipping:     DefaultFlatShipping,
		TaxRate:          DefaultTaxRate,
	}
}

// Line is a resolved cart entry.
type Line struct {
	Entry   model.CartEntry
	Product *model.Product
}

// Total is quantity times the product's effective price.
func (l Line) Total() decimal.Decimal {
	return l.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Entry.Quantity)))
}

// Resolve joins entries with their products, keeping entry order.
// Entries whose product no longer exists are skipped. Any other lookup
// failure is returned.
func Resolve(ctx context.Context, entries []model.CartEntry, lookup ProductLookup) ([]Line, error) {
	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		product, err := lookup.GetByID(ctx, entry.ProductID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{Entry: entry, Product: product})
	}
	return lines, nil
}

// Totals computes totals over already resolved lines. Amounts are not
// rounded.
func (c *Calculator) Totals(lines []Line) model.CheckoutTotals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}

	shipping := c.FlatShipping
	if subtotal.GreaterThan(c.FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(c.TaxRate)

	return model.CheckoutTotals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		GrandTotal: subtotal.Add(shipping).Add(tax),
	}
}

// ComputeTotals resolves entries through lookup and computes their totals.
// The result does not depend on entry order.
func (c *Calculator) ComputeTotals(ctx context.Context, entries []model.CartEntry, lookup ProductLookup) (model.CheckoutTotals, error) {
	lines, err := Resolve(ctx, entries, lookup)
	if err != nil {
		return model.CheckoutTotals{}, err
	}
	return c.Totals(lines), nil
}
