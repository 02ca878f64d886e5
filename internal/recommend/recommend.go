// Package recommend computes supplementary product listings: products similar
// to one being viewed, and cross-sell suggestions for a cart.
//
// Matching is pure and deterministic. The only random step, ordering the
// cross-sell fallback pool, draws from an injected source so results are
// reproducible under a fixed seed.
package recommend

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// DefaultLimit applies when a caller passes a non-positive limit.
const DefaultLimit = 4

// similarPriceWindow is the fraction of the source price within which a
// candidate counts as similarly priced (strictly less than).
var similarPriceWindow = decimal.RequireFromString("0.5")

// Engine produces recommendations from a product repository.
type Engine struct {
	repo   adapter.ProductRepository
	logger *slog.Logger

	mu  sync.Mutex // guards rng; *rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source for the cross-sell fallback.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds the random source. Zero keeps the time-based default.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// WithLogger sets the logger used to report degraded reads.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine over repo.
func New(repo adapter.ProductRepository, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		logger: slog.Default(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SimilarTo returns up to limit products similar to productID.
// An unknown product yields an empty result and no error. A repository
// failure yields an empty result together with the error.
func (e *Engine) SimilarTo(ctx context.Context, productID int64, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	catalog, err := e.repo.GetAll(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "similar products unavailable",
			slog.Int64("product_id", productID),
			slog.String("error", err.Error()),
		)
		return []model.Product{}, err
	}

	var source *model.Product
	for i := range catalog {
		if catalog[i].ID == productID {
			source = &catalog[i]
			break
		}
	}
	if source == nil {
		return []model.Product{}, nil
	}

	return truncate(Similar(source, catalog), limit), nil
}

// FrequentlyBoughtWith returns up to limit cross-sell suggestions for the
// products in a cart. Tag matches come first in catalog order, followed by
// a shuffled pool of products from categories the cart does not cover.
func (e *Engine) FrequentlyBoughtWith(ctx context.Context, productIDs []int64, limit int) ([]model.Product, error) {
	if len(productIDs) == 0 {
		return []model.Product{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	catalog, err := e.repo.GetAll(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "cart recommendations unavailable",
			slog.Int("cart_products", len(productIDs)),
			slog.String("error", err.Error()),
		)
		return []model.Product{}, err
	}

	profile := NewCartProfile(catalog, productIDs)
	result := TagMatches(profile, catalog)
	if len(result) >= limit {
		return result[:limit], nil
	}

	pool := FallbackPool(profile, catalog)
	e.shuffle(pool)
	return truncate(append(result, pool...), limit), nil
}

func (e *Engine) shuffle(products []model.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(products), func(i, j int) {
		products[i], products[j] = products[j], products[i]
	})
}

// Similar ranks every qualifying candidate for source: same category first,
// then by ascending absolute price difference, ties in catalog order.
func Similar(source *model.Product, catalog []model.Product) []model.Product {
	type scored struct {
		product  model.Product
		sameCat  bool
		distance decimal.Decimal
	}

	window := source.Price.Mul(similarPriceWindow)
	candidates := []scored{}
	for i := range catalog {
		c := &catalog[i]
		if c.ID == source.ID {
			continue
		}
		sameCat := c.Category == source.Category
		distance := c.Price.Sub(source.Price).Abs()
		if sameCat || sharesTag(c.Tags, source.Tags) || distance.LessThan(window) {
			candidates = append(candidates, scored{product: *c, sameCat: sameCat, distance: distance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.sameCat != b.sameCat {
			return a.sameCat
		}
		return a.distance.LessThan(b.distance)
	})

	out := make([]model.Product, len(candidates))
	for i, c := range candidates {
		out[i] = c.product
	}
	return out
}

// CartProfile summarizes the products already in a cart.
type CartProfile struct {
	InCart     map[int64]bool
	Categories map[model.Category]bool
	Tags       map[string]bool // lower-cased
}

// NewCartProfile collects categories and tags of the cart products found in
// catalog. Ids that do not resolve still exclude themselves from results.
func NewCartProfile(catalog []model.Product, productIDs []int64) CartProfile {
	profile := CartProfile{
		InCart:     make(map[int64]bool, len(productIDs)),
		Categories: make(map[model.Category]bool),
		Tags:       make(map[string]bool),
	}
	for _, id := range productIDs {
		profile.InCart[id] = true
	}
	for _, p := range catalog {
		if !profile.InCart[p.ID] {
			continue
		}
		profile.Categories[p.Category] = true
		for _, t := range p.Tags {
			profile.Tags[strings.ToLower(t)] = true
		}
	}
	return profile
}

func (cp CartProfile) sharesTag(p *model.Product) bool {
	for _, t := range p.Tags {
		if cp.Tags[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// TagMatches returns candidates outside the cart that share a tag with it,
// in catalog order.
func TagMatches(profile CartProfile, catalog []model.Product) []model.Product {
	out := []model.Product{}
	for i := range catalog {
		p := &catalog[i]
		if !profile.InCart[p.ID] && profile.sharesTag(p) {
			out = append(out, *p)
		}
	}
	return out
}

// FallbackPool returns candidates outside the cart with no shared tag whose
// category the cart does not already cover, in catalog order.
func FallbackPool(profile CartProfile, catalog []model.Product) []model.Product {
	out := []model.Product{}
	for i := range catalog {
		p := &catalog[i]
		if profile.InCart[p.ID] || profile.sharesTag(p) || profile.Categories[p.Category] {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func sharesTag(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}

func truncate(products []model.Product, limit int) []model.Product {
	if len(products) > limit {
		return products[:limit]
	}
	return products
}
