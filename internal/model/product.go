// Package model defines the canonical storefront types shared by every layer.
// External record shapes are mapped to these types at the repository boundary.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed catalog categories.
type Category string

const (
	CategoryActionFigures Category = "Action Figures & Playsets"
	CategoryDolls         Category = "Dolls & Accessories"
	CategoryBoardGames    Category = "Board Games & Puzzles"
	CategoryEducational   Category = "Educational & STEM Toys"
	CategoryBuilding      Category = "Building & Construction"
	CategoryArtsCrafts    Category = "Arts & Crafts"
	CategoryOutdoor       Category = "Outdoor & Sports"
	CategoryElectronic    Category = "Electronic & Interactive"
	CategoryPlush         Category = "Plush & Stuffed Animals"
	CategoryVehicles      Category = "Vehicles & Remote Control"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryActionFigures,
	CategoryDolls,
	CategoryBoardGames,
	CategoryEducational,
	CategoryBuilding,
	CategoryArtsCrafts,
	CategoryOutdoor,
	CategoryElectronic,
	CategoryPlush,
	CategoryVehicles,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a catalog item. The storefront core only reads products.
type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Brand         string           `json:"brand"`
	Description   string           `json:"description,omitempty"`
	Category      Category         `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	AgeMin        int              `json:"age_min"`
	AgeMax        int              `json:"age_max"`
	Rating        float64          `json:"rating"`
	ReviewCount   int              `json:"review_count"`
	Tags          []string         `json:"tags"`
	IsFeatured    bool             `json:"is_featured"`
	CreatedAt     time.Time        `json:"created_at"`

	// Descriptive fields, not used by any rule
	Images     []string    `json:"images,omitempty"`
	Material   string      `json:"material,omitempty"`
	Weight     string      `json:"weight,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Dimensions is the boxed size of a product.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
}

// EffectivePrice is the sale price when present, otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// OnSale reports whether the product carries a sale price below its list price.
func (p *Product) OnSale() bool {
	return p.SalePrice != nil && p.SalePrice.LessThan(p.Price)
}

// DiscountPercent is the whole-number percentage saved by the sale price.
// Returns 0 when the product is not on sale.
func (p *Product) DiscountPercent() int {
	if !p.OnSale() || p.Price.IsZero() {
		return 0
	}
	pct := p.Price.Sub(*p.SalePrice).Div(p.Price).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// HasTag reports whether the product carries tag, ignoring case.
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	switch {
	case p.ID <= 0:
		return NewValidationError("id", "must be positive")
	case strings.TrimSpace(p.Name) == "":
		return NewValidationError("name", "required")
	case !p.Category.Valid():
		return NewValidationError("category", "unknown category "+string(p.Category))
	case p.Price.IsNegative():
		return NewValidationError("price", "must not be negative")
	case p.SalePrice != nil && !p.SalePrice.LessThan(p.Price):
		return NewValidationError("sale_price", "must be below price")
	case p.StockQuantity < 0:
		return NewValidationError("stock_quantity", "must not be negative")
	case p.AgeMin > p.AgeMax:
		return NewValidationError("age_min", "must not exceed age_max")
	case p.Rating < 0 || p.Rating > 5:
		return NewValidationError("rating", "must be between 0 and 5")
	case p.ReviewCount < 0:
		return NewValidationError("review_count", "must not be negative")
	}
	return nil
}
