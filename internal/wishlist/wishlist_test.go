package wishlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/persist"
)

func catalog(ids ...int64) *adapter.Mock {
	products := make([]model.Product, len(ids))
	for i, id := range ids {
		products[i] = model.Product{ID: id, Name: "Toy", Category: model.CategoryDolls, Price: decimal.NewFromInt(5)}
	}
	return &adapter.Mock{
		GetAllFunc: func(ctx context.Context) ([]model.Product, error) {
			return products, nil
		},
	}
}

func TestToggleTwiceRestoresMembership(t *testing.T) {
	for _, preloaded := range []bool{false, true} {
		l := New("anon:s1", persist.NewMemory(), catalog(1, 2))
		ctx := context.Background()
		if preloaded {
			_, err := l.Toggle(ctx, 2)
			require.NoError(t, err)
		}
		before := l.All()

		first, err := l.Toggle(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.WishlistAdded, first)
		assert.True(t, l.Contains(1))

		second, err := l.Toggle(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.WishlistRemoved, second)
		assert.False(t, l.Contains(1))

		assert.Equal(t, before, l.All())
	}
}

func TestToggleUnknownProduct(t *testing.T) {
	l := New("anon:s1", persist.NewMemory(), catalog(1))

	action, err := l.Toggle(context.Background(), 42)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Empty(t, action)
	assert.Empty(t, l.All())
}

func TestAllKeepsOrder(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New("user:9", persist.NewMemory(), catalog(1, 2, 3), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, err := l.Toggle(ctx, id)
		require.NoError(t, err)
	}

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ProductID)
	assert.Equal(t, int64(2), all[2].ProductID)
	assert.Equal(t, now, all[0].AddedAt)
}

func TestClear(t *testing.T) {
	l := New("user:9", persist.NewMemory(), catalog(1, 2))
	ctx := context.Background()
	_, _ = l.Toggle(ctx, 1)
	_, _ = l.Toggle(ctx, 2)

	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.All())
}

func TestProductsSkipsDelisted(t *testing.T) {
	store := persist.NewMemory()
	ctx := context.Background()
	l := New("user:9", store, catalog(1, 2, 3))
	for _, id := range []int64{1, 2, 3} {
		_, err := l.Toggle(ctx, id)
		require.NoError(t, err)
	}

	// Product 2 is delisted
	l.products = catalog(1, 3)

	products, err := l.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(3), products[1].ID)
}

func TestProductsRemoteFailure(t *testing.T) {
	l := New("user:9", persist.NewMemory(), catalog(1))
	_, err := l.Toggle(context.Background(), 1)
	require.NoError(t, err)

	l.products = &adapter.Mock{
		GetByIDFunc: func(ctx context.Context, id int64) (*model.Product, error) {
			return nil, model.NewRemoteError("catalog", errors.New("unreachable"))
		},
	}
	products, err := l.Products(context.Background())
	assert.True(t, model.IsRemoteFailure(err))
	assert.Empty(t, products)
}

func TestReload(t *testing.T) {
	store := persist.NewMemory()
	ctx := context.Background()
	clock := WithClock(func() time.Time { return time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC) })
	l := New("user:9", store, catalog(1, 2), clock)
	_, _ = l.Toggle(ctx, 2)
	_, _ = l.Toggle(ctx, 1)

	reloaded := New("user:9", store, catalog(1, 2))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, l.All(), reloaded.All())

	other := New("user:10", store, catalog(1, 2))
	require.NoError(t, other.Load(ctx))
	assert.Empty(t, other.All())
}

func TestSaveFailureRollsBack(t *testing.T) {
	store := &persist.Mock{
		SaveFunc: func(ctx context.Context, s *persist.Snapshot) error {
			return errors.New("quota exceeded")
		},
	}
	l := New("user:9", store, catalog(1))

	_, err := l.Toggle(context.Background(), 1)
	assert.True(t, model.IsRemoteFailure(err))
	assert.False(t, l.Contains(1))
}
