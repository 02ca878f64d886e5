// Package storefront wires the catalog, ledgers, checkout and order
// components into the operations served over HTTP and MCP.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"storefront/internal/adapter"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/persist"
	"storefront/internal/recommend"
	"storefront/internal/review"
	"storefront/internal/session"
	"storefront/internal/wishlist"
)

// DefaultLedgerCacheSize is the number of owners whose cart and wishlist
// stay in memory when Deps.LedgerCacheSize is unset.
const DefaultLedgerCacheSize = 4096

// Deps are the collaborators a Service is built from. Engine, Calculator,
// Logger and LedgerCacheSize have defaults.
type Deps struct {
	Products   adapter.ProductRepository
	Orders     adapter.OrderStore
	Reviews    adapter.ReviewStore
	Store      persist.Store
	Engine     *recommend.Engine
	Calculator *checkout.Calculator
	Logger     *slog.Logger
	Clock      func() time.Time

	// LedgerCacheSize bounds the cached carts and, separately, the cached
	// wishlists. The least recently used ledger is evicted first and is
	// reloaded from Store on its next use.
	LedgerCacheSize int
}

// Service is the storefront application layer. Safe for concurrent use.
type Service struct {
	products adapter.ProductRepository
	orders   adapter.OrderStore
	reviews  adapter.ReviewStore
	store    persist.Store
	engine   *recommend.Engine
	calc     *checkout.Calculator
	placer   *order.Placer
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	carts     *lru.Cache // owner → *slot[*cart.Ledger]
	wishlists *lru.Cache // owner → *slot[*wishlist.Ledger]
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Engine == nil {
		deps.Engine = recommend.New(deps.Products, recommend.WithLogger(deps.Logger))
	}
	if deps.Calculator == nil {
		deps.Calculator = checkout.New()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LedgerCacheSize <= 0 {
		deps.LedgerCacheSize = DefaultLedgerCacheSize
	}

	return &Service{
		products:  deps.Products,
		orders:    deps.Orders,
		reviews:   deps.Reviews,
		store:     deps.Store,
		engine:    deps.Engine,
		calc:      deps.Calculator,
		placer:    order.NewPlacer(deps.Products, deps.Orders, deps.Calculator, deps.Logger),
		logger:    deps.Logger,
		now:       deps.Clock,
		carts:     newLedgerCache(deps.LedgerCacheSize),
		wishlists: newLedgerCache(deps.LedgerCacheSize),
	}
}

// === Catalog ===

// Query selects a catalog listing.
type Query struct {
	Text   string
	Filter catalog.Filter
	Sort   catalog.SortOrder
}

// Catalog returns the products matching q. On a repository failure it
// returns an empty listing together with the error.
func (s *Service) Catalog(ctx context.Context, q Query) ([]model.Product, error) {
	if err := q.Filter.Validate(); err != nil {
		return []model.Product{}, err
	}

	var (
		products []model.Product
		err      error
	)
	switch {
	case q.Text != "":
		products, err = s.products.Search(ctx, q.Text)
	case len(q.Filter.Categories) == 1:
		products, err = s.products.GetByCategory(ctx, q.Filter.Categories[0])
	default:
		products, err = s.products.GetAll(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "catalog unavailable", slog.String("error", err.Error()))
		return []model.Product{}, err
	}

	return catalog.Sort(catalog.Apply(products, q.Filter), q.Sort), nil
}

// Featured returns the featured products.
func (s *Service) Featured(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return []model.Product{}, err
	}
	return catalog.Featured(products), nil
}

// Deals returns the products on sale, deepest discount first.
func (s *Service) Deals(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return []model.Product{}, err
	}
	deals := catalog.Deals(products)
	sortByDiscount(deals)
	return deals, nil
}

// Product returns one product.
func (s *Service) Product(ctx context.Context, id int64) (*model.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Pricing returns the checkout rules in effect.
func (s *Service) Pricing() checkout.Calculator {
	return *s.calc
}

// Similar returns up to limit products similar to id.
func (s *Service) Similar(ctx context.Context, id int64, limit int) ([]model.Product, error) {
	return s.engine.SimilarTo(ctx, id, limit)
}

// === Cart ===

// CartView returns the owner's cart joined with current product data.
// Entries whose product no longer exists are left out of the lines and
// the totals. On a repository failure the lines are empty and the error
// is returned.
func (s *Service) CartView(ctx context.Context, owner string) (model.CartView, error) {
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return emptyCartView(), err
	}

	lines, err := checkout.Resolve(ctx, ledger.Snapshot(), s.products)
	if err != nil {
		view := emptyCartView()
		view.ItemCount = ledger.TotalItemCount()
		return view, err
	}

	view := model.CartView{
		Lines:     make([]model.CartLine, 0, len(lines)),
		ItemCount: ledger.TotalItemCount(),
		Totals:    s.calc.Totals(lines).Rounded(),
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, model.CartLine{
			CartEntry: line.Entry,
			Product:   line.Product,
			LineTotal: model.Present(line.Total()),
		})
	}
	return view, nil
}

// AddToCart adds one unit of productID and returns the new quantity.
func (s *Service) AddToCart(ctx context.Context, owner string, productID int64) (int, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return 0, err
	}
	return ledger.Add(ctx, product)
}

// SetCartQuantity sets the quantity of a product already in the cart.
func (s *Service) SetCartQuantity(ctx context.Context, owner string, productID int64, qty int) error {
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return err
	}
	return ledger.SetQuantity(ctx, productID, qty)
}

// RemoveFromCart drops a product from the cart.
func (s *Service) RemoveFromCart(ctx context.Context, owner string, productID int64) error {
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return err
	}
	return ledger.Remove(ctx, productID)
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context, owner string) error {
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return err
	}
	return ledger.Clear(ctx)
}

// CartRecommendations returns cross-sell suggestions for the cart.
func (s *Service) CartRecommendations(ctx context.Context, owner string, limit int) ([]model.Product, error) {
	ledger, err := s.cart(ctx, owner)
	if err != nil {
		return []model.Product{}, err
	}
	return s.engine.FrequentlyBoughtWith(ctx, ledger.ProductIDs(), limit)
}

// FrequentlyBoughtWith returns cross-sell suggestions for an explicit set
// of products.
func (s *Service) FrequentlyBoughtWith(ctx context.Context, productIDs []int64, limit int) ([]model.Product, error) {
	return s.engine.FrequentlyBoughtWith(ctx, productIDs, limit)
}

// === Wishlist ===

// Wishlist returns the owner's saved products in the order they were saved.
func (s *Service) Wishlist(ctx context.Context, owner string) ([]model.Product, error) {
	ledger, err := s.wishlist(ctx, owner)
	if err != nil {
		return []model.Product{}, err
	}
	return ledger.Products(ctx)
}

// ToggleWishlist adds or removes productID.
func (s *Service) ToggleWishlist(ctx context.Context, owner string, productID int64) (model.WishlistAction, error) {
	ledger, err := s.wishlist(ctx, owner)
	if err != nil {
		return "", err
	}
	return ledger.Toggle(ctx, productID)
}

// ClearWishlist empties the wishlist.
func (s *Service) ClearWishlist(ctx context.Context, owner string) error {
	ledger, err := s.wishlist(ctx, owner)
	if err != nil {
		return err
	}
	return ledger.Clear(ctx)
}

// === Orders ===

// PlaceOrder places an order from the identity's cart.
func (s *Service) PlaceOrder(ctx context.Context, id session.Identity, address model.PostalAddress) (*model.Order, error) {
	ledger, err := s.cart(ctx, id.Owner())
	if err != nil {
		return nil, err
	}
	return s.placer.Place(ctx, id.UserID, ledger, address)
}

// Orders lists a signed-in user's orders, newest first. Anonymous
// sessions have no order history.
func (s *Service) Orders(ctx context.Context, id session.Identity) ([]model.Order, error) {
	if id.Anonymous() {
		return []model.Order{}, nil
	}
	orders, err := s.orders.ListOrders(ctx, id.UserID)
	if err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

// Order returns one of the identity's orders. Orders owned by someone else
// are reported as not found.
func (s *Service) Order(ctx context.Context, id session.Identity, orderID int64) (*model.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if id.Anonymous() || o.UserID != id.UserID {
		return nil, model.NewNotFoundError("order")
	}
	return o, nil
}

// === Reviews ===

// Reviews returns a product's reviews, newest first, with their summary.
func (s *Service) Reviews(ctx context.Context, productID int64) ([]model.Review, review.Summary, error) {
	reviews, err := s.reviews.ReviewsByProduct(ctx, productID)
	if err != nil {
		return []model.Review{}, review.Summary{}, err
	}
	return reviews, review.Summarize(reviews), nil
}

// AddReview stores a review for an existing product.
func (s *Service) AddReview(ctx context.Context, rv model.Review) (*model.Review, error) {
	if _, err := s.products.GetByID(ctx, rv.ProductID); err != nil {
		return nil, err
	}
	if err := rv.Validate(); err != nil {
		return nil, err
	}
	rv.ID = 0
	rv.HelpfulCount = 0
	rv.VerifiedPurchase = false
	rv.CreatedAt = s.now().UTC()
	return s.reviews.CreateReview(ctx, &rv)
}

// === Ledger cache ===

func newLedgerCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return c
}

func (s *Service) cart(ctx context.Context, owner string) (*cart.Ledger, error) {
	s.mu.Lock()
	var sl *slot[*cart.Ledger]
	if v, ok := s.carts.Get(owner); ok {
		sl = v.(*slot[*cart.Ledger])
	} else {
		sl = &slot[*cart.Ledger]{ledger: cart.New(owner, s.store, s.products,
			cart.WithLogger(s.logger), cart.WithClock(s.now))}
		s.carts.Add(owner, sl)
	}
	s.mu.Unlock()
	return sl.ready(ctx)
}

func (s *Service) wishlist(ctx context.Context, owner string) (*wishlist.Ledger, error) {
	s.mu.Lock()
	var sl *slot[*wishlist.Ledger]
	if v, ok := s.wishlists.Get(owner); ok {
		sl = v.(*slot[*wishlist.Ledger])
	} else {
		sl = &slot[*wishlist.Ledger]{ledger: wishlist.New(owner, s.store, s.products,
			wishlist.WithLogger(s.logger), wishlist.WithClock(s.now))}
		s.wishlists.Add(owner, sl)
	}
	s.mu.Unlock()
	return sl.ready(ctx)
}

type loader interface {
	Load(ctx context.Context) error
}

// slot holds a cached ledger and loads it from the store on first use.
// A failed load is retried on the next use.
type slot[L loader] struct {
	mu     sync.Mutex
	ledger L
	loaded bool
}

func (sl *slot[L]) ready(ctx context.Context) (L, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.loaded {
		if err := sl.ledger.Load(ctx); err != nil && !errors.Is(err, persist.ErrStale) {
			var zero L
			return zero, err
		}
		sl.loaded = true
	}
	return sl.ledger, nil
}

func emptyCartView() model.CartView {
	return model.CartView{Lines: []model.CartLine{}}
}

func sortByDiscount(products []model.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].DiscountPercent() > products[j].DiscountPercent()
	})
}
