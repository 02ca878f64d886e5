// Package cart implements the per-owner shopping cart ledger.
//
// Each product appears at most once. Quantities are bounded by the product's
// stock at the time of the mutation; violating mutations are rejected, never
// clamped. Every mutation is persisted before it returns, and a failed save
// leaves the ledger as it was.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/persist"
)

// Ledger is one owner's cart. Safe for concurrent use.
type Ledger struct {
	key      persist.Key
	store    persist.Store
	products adapter.ProductRepository
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	entries []model.CartEntry
	gen     persist.Generation
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for AddedAt and SavedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates an empty cart for owner. Call Load to restore a saved one.
func New(owner string, store persist.Store, products adapter.ProductRepository, opts ...Option) *Ledger {
	l := &Ledger{
		key:      persist.Key{Owner: owner, Kind: persist.KindCart},
		store:    store,
		products: products,
		now:      time.Now,
		logger:   slog.Default(),
		entries:  []model.CartEntry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Owner returns the identity the cart is persisted under.
func (l *Ledger) Owner() string {
	return l.key.Owner
}

// Add puts one unit of product in the cart. A product already present has
// its quantity increased by one. Returns the new quantity.
func (l *Ledger) Add(ctx context.Context, product *model.Product) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	next := l.copyEntries()
	i := indexOf(next, product.ID)
	if i < 0 {
		if product.StockQuantity < 1 {
			return 0, model.NewStockExceededError(product.ID, 1, product.StockQuantity)
		}
		next = append(next, model.CartEntry{ProductID: product.ID, Quantity: 1, AddedAt: l.now()})
		i = len(next) - 1
	} else {
		want := next[i].Quantity + 1
		if want > product.StockQuantity {
			return next[i].Quantity, model.NewStockExceededError(product.ID, want, product.StockQuantity)
		}
		next[i].Quantity = want
	}

	if err := l.commit(ctx, next); err != nil {
		return l.quantityLocked(product.ID), err
	}
	return next[i].Quantity, nil
}

// SetQuantity replaces the quantity of a product already in the cart.
// The product's current stock is looked up from the repository.
func (l *Ledger) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return model.NewValidationError("quantity", "must be at least 1")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	i := indexOf(l.entries, productID)
	if i < 0 {
		return model.NewNotFoundError("cart item")
	}

	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.StockQuantity {
		return model.NewStockExceededError(productID, qty, product.StockQuantity)
	}
	if l.entries[i].Quantity == qty {
		return nil
	}

	next := l.copyEntries()
	next[i].Quantity = qty
	return l.commit(ctx, next)
}

// Remove takes a product out of the cart. Removing an absent product is a
// no-op.
func (l *Ledger) Remove(ctx context.Context, productID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	i := indexOf(l.entries, productID)
	if i < 0 {
		return nil
	}

	next := make([]model.CartEntry, 0, len(l.entries)-1)
	next = append(next, l.entries[:i]...)
	next = append(next, l.entries[i+1:]...)
	return l.commit(ctx, next)
}

// Clear empties the cart.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	return l.commit(ctx, []model.CartEntry{})
}

// Consume takes ordered quantities out of the cart. Entries that reach
// zero are removed; anything added since ordered was taken stays.
func (l *Ledger) Consume(ctx context.Context, ordered []model.CartEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	used := make(map[int64]int, len(ordered))
	for _, e := range ordered {
		used[e.ProductID] += e.Quantity
	}

	next := make([]model.CartEntry, 0, len(l.entries))
	for _, e := range l.entries {
		e.Quantity -= used[e.ProductID]
		if e.Quantity > 0 {
			next = append(next, e)
		}
	}
	return l.commit(ctx, next)
}

// TotalItemCount is the sum of all quantities.
func (l *Ledger) TotalItemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, e := range l.entries {
		total += e.Quantity
	}
	return total
}

// Quantity returns the quantity of productID, zero when absent.
func (l *Ledger) Quantity(productID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quantityLocked(productID)
}

// Snapshot returns a copy of the entries in the order they were added.
func (l *Ledger) Snapshot() []model.CartEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyEntries()
}

// ProductIDs lists the products in the cart in order.
func (l *Ledger) ProductIDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]int64, len(l.entries))
	for i, e := range l.entries {
		ids[i] = e.ProductID
	}
	return ids
}

// Load replaces the in-memory cart with the persisted one. If the cart
// was mutated or loaded again while this load was in flight, the result is
// discarded and persist.ErrStale is returned.
func (l *Ledger) Load(ctx context.Context) error {
	ticket := l.gen.Next()

	snapshot, err := l.store.Load(ctx, l.key)
	if err != nil {
		return asRemote(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.gen.IsCurrent(ticket) {
		l.logger.DebugContext(ctx, "discarding stale cart load", slog.String("owner", l.key.Owner))
		return persist.ErrStale
	}

	entries := make([]model.CartEntry, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if item.Quantity < 1 || indexOf(entries, item.ProductID) >= 0 {
			continue
		}
		entries = append(entries, model.CartEntry{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	l.entries = entries
	return nil
}

// commit persists next and, on success, makes it the current state.
// Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, next []model.CartEntry) error {
	snapshot := persist.Empty(l.key)
	snapshot.SavedAt = l.now()
	for _, e := range next {
		snapshot.Items = append(snapshot.Items, persist.Item{
			ProductID: e.ProductID,
			Quantity:  e.Quantity,
			AddedAt:   e.AddedAt,
		})
	}

	if err := l.store.Save(ctx, snapshot); err != nil {
		l.logger.ErrorContext(ctx, "failed to persist cart",
			slog.String("owner", l.key.Owner),
			slog.String("error", err.Error()),
		)
		return asRemote(err)
	}
	l.entries = next
	return nil
}

func (l *Ledger) copyEntries() []model.CartEntry {
	out := make([]model.CartEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) quantityLocked(productID int64) int {
	if i := indexOf(l.entries, productID); i >= 0 {
		return l.entries[i].Quantity
	}
	return 0
}

func indexOf(entries []model.CartEntry, productID int64) int {
	for i, e := range entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

// asRemote makes sure persistence failures surface as REMOTE_FAILURE.
func asRemote(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return model.NewRemoteError("cart store", err)
}
