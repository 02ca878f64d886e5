package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// AgeGroup is a browsing bucket over a product's recommended age range.
type AgeGroup struct {
	Label string
	Min   int
	Max   int
}

// openAgeLimit stands in for the missing upper bound of "12+".
const openAgeLimit = 100

// AgeGroups are the buckets offered to shoppers.
var AgeGroups = []AgeGroup{
	{Label: "0-2", Min: 0, Max: 2},
	{Label: "3-5", Min: 3, Max: 5},
	{Label: "6-8", Min: 6, Max: 8},
	{Label: "9-12", Min: 9, Max: 12},
	{Label: "12+", Min: 12, Max: openAgeLimit},
}

// ParseAgeGroup looks up a bucket by label.
func ParseAgeGroup(label string) (AgeGroup, error) {
	for _, g := range AgeGroups {
		if g.Label == label {
			return g, nil
		}
	}
	return AgeGroup{}, model.NewValidationError("age", "unknown age group "+label)
}

// Contains reports whether the product's whole age range sits inside the group.
func (g AgeGroup) Contains(p *model.Product) bool {
	return p.AgeMin >= g.Min && p.AgeMax <= g.Max
}

// Filter narrows a product listing. Zero values match everything.
// Within Categories and AgeGroups any entry may match; across fields all must.
type Filter struct {
	Categories  []model.Category
	AgeGroups   []AgeGroup
	MinPrice    *decimal.Decimal // inclusive, on effective price
	MaxPrice    *decimal.Decimal // inclusive, on effective price
	InStockOnly bool
}

// Validate rejects unknown categories and an inverted price range.
func (f *Filter) Validate() error {
	for _, c := range f.Categories {
		if !c.Valid() {
			return model.NewValidationError("category", "unknown category "+string(c))
		}
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return model.NewValidationError("min_price", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return model.NewValidationError("max_price", "must not be below min_price")
	}
	return nil
}

// Match reports whether p passes every filter clause.
func (f *Filter) Match(p *model.Product) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if p.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.AgeGroups) > 0 {
		found := false
		for _, g := range f.AgeGroups {
			if g.Contains(p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	price := p.EffectivePrice()
	if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
		return false
	}

	if f.InStockOnly && !p.InStock() {
		return false
	}
	return true
}

// Apply returns the products passing f, keeping their order.
func Apply(products []model.Product, f Filter) []model.Product {
	out := make([]model.Product, 0, len(products))
	for i := range products {
		if f.Match(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}

// SortOrder names a listing order.
type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
	SortNewest    SortOrder = "newest"
)

// ParseSortOrder validates a sort name. Empty selects SortFeatured.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.TrimSpace(s)); o {
	case "":
		return SortFeatured, nil
	case SortFeatured, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return o, nil
	default:
		return "", model.NewValidationError("sort", "unknown sort order "+s)
	}
}

// Sort returns a sorted copy of products. Ties keep catalog order.
func Sort(products []model.Product, order SortOrder) []model.Product {
	out := make([]model.Product, len(products))
	copy(out, products)

	var less func(a, b *model.Product) bool
	switch order {
	case SortPriceLow:
		less = func(a, b *model.Product) bool { return a.EffectivePrice().LessThan(b.EffectivePrice()) }
	case SortPriceHigh:
		less = func(a, b *model.Product) bool { return a.EffectivePrice().GreaterThan(b.EffectivePrice()) }
	case SortRating:
		less = func(a, b *model.Product) bool { return a.Rating > b.Rating }
	case SortNewest:
		less = func(a, b *model.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b *model.Product) bool { return a.IsFeatured && !b.IsFeatured }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// Featured returns the featured products in catalog order.
func Featured(products []model.Product) []model.Product {
	out := []model.Product{}
	for _, p := range products {
		if p.IsFeatured {
			out = append(out, p)
		}
	}
	return out
}

// Deals returns the products currently on sale, in catalog order.
func Deals(products []model.Product) []model.Product {
	out := []model.Product{}
	for i := range products {
		if products[i].OnSale() {
			out = append(out, products[i])
		}
	}
	return out
}
