// Package catalog provides the in-memory product repository and the
// listing helpers (filters, sorts, featured and deal views) the storefront
// applies on top of any repository.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// Memory is a fixture-backed ProductRepository.
// Products are validated once at construction and never change afterwards,
// so reads need no locking.
type Memory struct {
	products []model.Product
	byID     map[int64]int
}

// NewMemory builds a repository over products, keeping their order as the
// catalog order. Rejects invalid products and duplicate ids.
func NewMemory(products []model.Product) (*Memory, error) {
	m := &Memory{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[int64]int, len(products)),
	}
	for i := range products {
		p := products[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		if _, dup := m.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		m.byID[p.ID] = len(m.products)
		m.products = append(m.products, p)
	}
	return m, nil
}

// GetAll returns a copy of the whole catalog.
func (m *Memory) GetAll(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

// GetByID returns a copy of one product.
func (m *Memory) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := m.byID[id]
	if !ok {
		return nil, model.NewNotFoundError("product")
	}
	p := m.products[idx]
	return &p, nil
}

// GetByCategory returns the products in category.
func (m *Memory) GetByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Product{}
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// Search returns products matching text. Blank text returns everything.
func (m *Memory) Search(ctx context.Context, text string) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Product{}
	for i := range m.products {
		if Matches(&m.products[i], text) {
			out = append(out, m.products[i])
		}
	}
	return out, nil
}

// Matches reports whether text occurs, ignoring case, in the product's
// name, brand, description or category.
func Matches(p *model.Product, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Brand, p.Description, string(p.Category)} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Ensure Memory implements ProductRepository
var _ adapter.ProductRepository = (*Memory)(nil)
