package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"storefront/internal/model"
)

//go:embed fixtures/sample.yaml
var sampleCatalog []byte

// fixtureFile is the top-level shape of a catalog fixture.
// YAML and JSON are both accepted since JSON parses as YAML.
type fixtureFile struct {
	Products []fixtureProduct `yaml:"products"`
}

// fixtureProduct mirrors model.Product with plain field types so fixtures can
// write prices as strings without precision loss.
type fixtureProduct struct {
	ID            int64     `yaml:"id"`
	Name          string    `yaml:"name"`
	Brand         string    `yaml:"brand"`
	Description   string    `yaml:"description"`
	Category      string    `yaml:"category"`
	Price         string    `yaml:"price"`
	SalePrice     string    `yaml:"sale_price"`
	StockQuantity int       `yaml:"stock_quantity"`
	AgeMin        int       `yaml:"age_min"`
	AgeMax        int       `yaml:"age_max"`
	Rating        float64   `yaml:"rating"`
	ReviewCount   int       `yaml:"review_count"`
	Tags          []string  `yaml:"tags"`
	IsFeatured    bool      `yaml:"is_featured"`
	CreatedAt     time.Time `yaml:"created_at"`
	Images        []string  `yaml:"images"`
	Material      string    `yaml:"material"`
	Weight        string    `yaml:"weight"`
}

func (f fixtureProduct) toProduct() model.Product {
	p := model.Product{
		ID:            f.ID,
		Name:          f.Name,
		Brand:         f.Brand,
		Description:   f.Description,
		Category:      model.Category(f.Category),
		Price:         model.ParseAmount(f.Price),
		StockQuantity: f.StockQuantity,
		AgeMin:        f.AgeMin,
		AgeMax:        f.AgeMax,
		Rating:        f.Rating,
		ReviewCount:   f.ReviewCount,
		Tags:          NormalizeTags(f.Tags),
		IsFeatured:    f.IsFeatured,
		CreatedAt:     f.CreatedAt,
		Images:        f.Images,
		Material:      f.Material,
		Weight:        f.Weight,
	}
	if strings.TrimSpace(f.SalePrice) != "" {
		sale := model.ParseAmount(f.SalePrice)
		p.SalePrice = &sale
	}
	return p
}

// LoadFixture decodes a catalog fixture into products, in file order.
func LoadFixture(r io.Reader) ([]model.Product, error) {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding catalog fixture: %w", err)
	}
	products := make([]model.Product, 0, len(file.Products))
	for _, fp := range file.Products {
		products = append(products, fp.toProduct())
	}
	return products, nil
}

// LoadFile reads a fixture from disk. An empty path loads the built-in sample catalog.
func LoadFile(path string) (*Memory, error) {
	var r io.Reader
	if path == "" {
		r = bytes.NewReader(sampleCatalog)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening catalog fixture: %w", err)
		}
		defer f.Close()
		r = f
	}

	products, err := LoadFixture(r)
	if err != nil {
		return nil, err
	}
	return NewMemory(products)
}

// NormalizeTags trims tags and drops blanks and case-insensitive duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
