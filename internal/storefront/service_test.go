package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/persist"
	"storefront/internal/recommend"
	"storefront/internal/review"
	"storefront/internal/session"
)

var fixedNow = time.Date(2024, 7, 4, 15, 30, 0, 0, time.UTC)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func salePrice(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func testProducts() []model.Product {
	return []model.Product{
		{ID: 1, Name: "Space Robot", Brand: "Acme", Category: model.CategoryElectronic, Price: price("10.00"),
			StockQuantity: 5, AgeMin: 6, AgeMax: 12, Tags: []string{"stem"}, IsFeatured: true},
		{ID: 2, Name: "Teddy Bear", Brand: "Cuddle", Category: model.CategoryPlush, Price: price("30.00"),
			SalePrice: salePrice("25.00"), StockQuantity: 3, AgeMin: 0, AgeMax: 5},
		{ID: 3, Name: "Stunt Kite", Brand: "Sky", Category: model.CategoryOutdoor, Price: price("20.00"),
			SalePrice: salePrice("10.00"), StockQuantity: 0, AgeMin: 8, AgeMax: 99},
		{ID: 4, Name: "World Puzzle", Brand: "Acme", Category: model.CategoryBoardGames, Price: price("15.00"),
			StockQuantity: 10, AgeMin: 6, AgeMax: 99, Tags: []string{"stem"}},
	}
}

type fixture struct {
	svc     *Service
	store   *persist.Memory
	orders  *order.Memory
	reviews *review.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := catalog.NewMemory(testProducts())
	require.NoError(t, err)
	return newFixtureWith(t, repo, persist.NewMemory())
}

func newFixtureWith(t *testing.T, repo adapter.ProductRepository, store persist.Store) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		orders:  order.NewMemory(),
		reviews: review.NewMemory(nil),
	}
	if m, ok := store.(*persist.Memory); ok {
		f.store = m
	}
	f.svc = New(Deps{
		Products: repo,
		Orders:   f.orders,
		Reviews:  f.reviews,
		Store:    store,
		Engine:   recommend.New(repo, recommend.WithSeed(42), recommend.WithLogger(logger)),
		Logger:   logger,
		Clock:    func() time.Time { return fixedNow },
	})
	return f
}

func ids(products []model.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{"everything, featured first", Query{}, []int64{1, 2, 3, 4}},
		{"text search", Query{Text: "acme"}, []int64{1, 4}},
		{"single category", Query{Filter: catalog.Filter{Categories: []model.Category{model.CategoryPlush}}}, []int64{2}},
		{"in stock by price", Query{Filter: catalog.Filter{InStockOnly: true}, Sort: catalog.SortPriceLow}, []int64{1, 4, 2}},
		{"max effective price", Query{Filter: catalog.Filter{MaxPrice: salePrice("10.00")}}, []int64{1, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.Catalog(ctx, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestCatalogRejectsInvalidFilter(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Catalog(context.Background(), Query{
		Filter: catalog.Filter{Categories: []model.Category{"Kitchen Sinks"}},
	})
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Empty(t, got)
}

func TestReadsDegradeOnRemoteFailure(t *testing.T) {
	down := &adapter.Mock{
		GetAllFunc: func(ctx context.Context) ([]model.Product, error) {
			return nil, model.NewRemoteError("record store", errors.New("connection refused"))
		},
	}
	f := newFixtureWith(t, down, persist.NewMemory())
	ctx := context.Background()

	products, err := f.svc.Catalog(ctx, Query{})
	assert.True(t, model.IsRemoteFailure(err))
	assert.NotNil(t, products)
	assert.Empty(t, products)

	deals, err := f.svc.Deals(ctx)
	assert.True(t, model.IsRemoteFailure(err))
	assert.Empty(t, deals)

	similar, err := f.svc.Similar(ctx, 1, 4)
	assert.True(t, model.IsRemoteFailure(err))
	assert.Empty(t, similar)
}

func TestDealsDeepestDiscountFirst(t *testing.T) {
	f := newFixture(t)

	deals, err := f.svc.Deals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(deals))
}

func TestCartViewTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.AddToCart(ctx, "user:u1", 1)
		require.NoError(t, err)
	}

	view, err := f.svc.CartView(ctx, "user:u1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "20.00", model.FormatAmount(view.Lines[0].LineTotal))
	assert.Equal(t, "20.00", model.FormatAmount(view.Totals.Subtotal))
	assert.Equal(t, "9.99", model.FormatAmount(view.Totals.Shipping))
	assert.Equal(t, "1.60", model.FormatAmount(view.Totals.Tax))
	assert.Equal(t, "31.59", model.FormatAmount(view.Totals.GrandTotal))
}

func TestCartViewSkipsDelistedProducts(t *testing.T) {
	products := testProducts()
	var mu sync.Mutex
	repo := &adapter.Mock{
		GetAllFunc: func(ctx context.Context) ([]model.Product, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]model.Product(nil), products...), nil
		},
	}
	f := newFixtureWith(t, repo, persist.NewMemory())
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, "anon:s1", 1)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, "anon:s1", 2)
	require.NoError(t, err)

	mu.Lock()
	products = products[1:]
	mu.Unlock()

	view, err := f.svc.CartView(ctx, "anon:s1")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(2), view.Lines[0].ProductID)
	assert.Equal(t, "25.00", model.FormatAmount(view.Totals.Subtotal))
}

func TestAddToCartErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, "anon:s1", 99)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = f.svc.AddToCart(ctx, "anon:s1", 3)
	assert.True(t, errors.Is(err, model.ErrStockExceeded))
}

func TestCartMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := "anon:s1"

	_, err := f.svc.AddToCart(ctx, owner, 4)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetCartQuantity(ctx, owner, 4, 7))

	view, err := f.svc.CartView(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 7, view.ItemCount)

	err = f.svc.SetCartQuantity(ctx, owner, 4, 11)
	assert.True(t, errors.Is(err, model.ErrStockExceeded))

	require.NoError(t, f.svc.RemoveFromCart(ctx, owner, 4))
	view, err = f.svc.CartView(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	_, err = f.svc.AddToCart(ctx, owner, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearCart(ctx, owner))
	view, err = f.svc.CartView(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, view.ItemCount)
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, "user:a", 1)
	require.NoError(t, err)

	view, err := f.svc.CartView(ctx, "user:b")
	require.NoError(t, err)
	assert.Equal(t, 0, view.ItemCount)
}

func TestLedgerLoadedFromStoreOnFirstUse(t *testing.T) {
	store := persist.NewMemory()
	saved := persist.Empty(persist.Key{Owner: "user:u1", Kind: persist.KindCart})
	saved.Items = []persist.Item{{ProductID: 4, Quantity: 3, AddedAt: fixedNow}}
	require.NoError(t, store.Save(context.Background(), saved))

	repo, err := catalog.NewMemory(testProducts())
	require.NoError(t, err)
	f := newFixtureWith(t, repo, store)

	view, err := f.svc.CartView(context.Background(), "user:u1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.ItemCount)
}

func TestLedgerLoadRetriedAfterFailure(t *testing.T) {
	backing := persist.NewMemory()
	fail := true
	store := &persist.Mock{
		LoadFunc: func(ctx context.Context, key persist.Key) (*persist.Snapshot, error) {
			if fail {
				return nil, errors.New("database is down")
			}
			return backing.Load(ctx, key)
		},
		SaveFunc: backing.Save,
	}
	repo, err := catalog.NewMemory(testProducts())
	require.NoError(t, err)
	f := newFixtureWith(t, repo, store)
	ctx := context.Background()

	view, err := f.svc.CartView(ctx, "user:u1")
	assert.True(t, model.IsRemoteFailure(err))
	assert.Empty(t, view.Lines)

	_, err = f.svc.AddToCart(ctx, "user:u1", 1)
	assert.True(t, model.IsRemoteFailure(err), "writes must not run against an unloaded cart")

	fail = false
	qty, err := f.svc.AddToCart(ctx, "user:u1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)
}

func TestLedgerCacheIsBounded(t *testing.T) {
	repo, err := catalog.NewMemory(testProducts())
	require.NoError(t, err)
	store := persist.NewMemory()
	svc := New(Deps{
		Products:        repo,
		Orders:          order.NewMemory(),
		Reviews:         review.NewMemory(nil),
		Store:           store,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:           func() time.Time { return fixedNow },
		LedgerCacheSize: 8,
	})
	ctx := context.Background()

	_, err = svc.AddToCart(ctx, "user:first", 4)
	require.NoError(t, err)
	_, err = svc.ToggleWishlist(ctx, "user:first", 2)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		owner := fmt.Sprintf("anon:s-%d", i)
		_, err := svc.CartView(ctx, owner)
		require.NoError(t, err)
		_, err = svc.Wishlist(ctx, owner)
		require.NoError(t, err)
	}

	assert.Equal(t, 8, svc.carts.Len())
	assert.Equal(t, 8, svc.wishlists.Len())
	assert.False(t, svc.carts.Contains("user:first"))

	// evicted ledgers come back from the store
	view, err := svc.CartView(ctx, "user:first")
	require.NoError(t, err)
	assert.Equal(t, 1, view.ItemCount)
	saved, err := svc.Wishlist(ctx, "user:first")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(saved))
}

func TestCartRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.CartRecommendations(ctx, "anon:s1", 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.AddToCart(ctx, "anon:s1", 1)
	require.NoError(t, err)
	got, err = f.svc.CartRecommendations(ctx, "anon:s1", 1)
	require.NoError(t, err)
	// The puzzle shares the "stem" tag with the robot
	assert.Equal(t, []int64{4}, ids(got))
}

func TestWishlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := "user:u1"

	action, err := f.svc.ToggleWishlist(ctx, owner, 2)
	require.NoError(t, err)
	assert.Equal(t, model.WishlistAdded, action)
	_, err = f.svc.ToggleWishlist(ctx, owner, 4)
	require.NoError(t, err)

	products, err := f.svc.Wishlist(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids(products))

	action, err = f.svc.ToggleWishlist(ctx, owner, 2)
	require.NoError(t, err)
	assert.Equal(t, model.WishlistRemoved, action)

	_, err = f.svc.ToggleWishlist(ctx, owner, 99)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, f.svc.ClearWishlist(ctx, owner))
	products, err = f.svc.Wishlist(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func validAddress() model.PostalAddress {
	return model.PostalAddress{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Street:     "1 Analytical Way",
		City:       "London",
		State:      "LDN",
		PostalCode: "N1 9GU",
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := session.Identity{SessionID: "s1", UserID: "u1"}

	_, err := f.svc.AddToCart(ctx, id.Owner(), 2)
	require.NoError(t, err)

	placed, err := f.svc.PlaceOrder(ctx, id, validAddress())
	require.NoError(t, err)
	assert.Equal(t, "u1", placed.UserID)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, "25.00", model.FormatAmount(placed.Items[0].UnitPrice))

	view, err := f.svc.CartView(ctx, id.Owner())
	require.NoError(t, err)
	assert.Equal(t, 0, view.ItemCount, "cart is cleared after placing an order")

	orders, err := f.svc.Orders(ctx, id)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.ID, orders[0].ID)

	got, err := f.svc.Order(ctx, id, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.Number, got.Number)

	_, err = f.svc.Order(ctx, session.Identity{SessionID: "s2", UserID: "u2"}, placed.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestPlaceOrderKeepsItemsAddedDuringPlacement(t *testing.T) {
	repo, err := catalog.NewMemory(testProducts())
	require.NoError(t, err)
	orders := order.NewMemory()
	ctx := context.Background()
	id := session.Identity{SessionID: "s1", UserID: "u1"}

	var svc *Service
	svc = New(Deps{
		Products: repo,
		Orders: &adapter.Mock{
			CreateOrderFunc: func(ctx context.Context, o *model.Order) (*model.Order, error) {
				// the shopper adds another item while the order is being stored
				if _, err := svc.AddToCart(ctx, id.Owner(), 4); err != nil {
					return nil, err
				}
				return orders.CreateOrder(ctx, o)
			},
		},
		Reviews: review.NewMemory(nil),
		Store:   persist.NewMemory(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:   func() time.Time { return fixedNow },
	})

	_, err = svc.AddToCart(ctx, id.Owner(), 2)
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, id, validAddress())
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, int64(2), placed.Items[0].ProductID)

	view, err := svc.CartView(ctx, id.Owner())
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(4), view.Lines[0].Product.ID)
	assert.Equal(t, 1, view.ItemCount)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), session.Identity{SessionID: "s1"}, validAddress())
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestAnonymousOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anon := session.Identity{SessionID: "s1"}

	_, err := f.svc.AddToCart(ctx, anon.Owner(), 1)
	require.NoError(t, err)
	placed, err := f.svc.PlaceOrder(ctx, anon, validAddress())
	require.NoError(t, err)
	assert.Equal(t, model.GuestUserID, placed.UserID)

	orders, err := f.svc.Orders(ctx, anon)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = f.svc.Order(ctx, anon, placed.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, rating := range []int{5, 4} {
		_, err := f.svc.AddReview(ctx, model.Review{
			ProductID: 1, UserName: "Sam", Rating: rating, Comment: "Great",
			HelpfulCount: 100, VerifiedPurchase: true,
		})
		require.NoError(t, err)
	}

	reviews, summary, err := f.svc.Reviews(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
	assert.Equal(t, fixedNow, reviews[0].CreatedAt)
	assert.Zero(t, reviews[0].HelpfulCount)
	assert.False(t, reviews[0].VerifiedPurchase)
}

func TestAddReviewErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddReview(ctx, model.Review{ProductID: 99, UserName: "Sam", Rating: 5, Comment: "x"})
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = f.svc.AddReview(ctx, model.Review{ProductID: 1, UserName: "Sam", Rating: 0, Comment: "x"})
	assert.True(t, errors.Is(err, model.ErrValidation))
}
