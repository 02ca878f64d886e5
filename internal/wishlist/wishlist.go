// Package wishlist implements the per-owner saved-products ledger.
// Membership is binary; there is no quantity.
package wishlist

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

// Ledger is one owner's wishlist. Safe for concurrent use.
type Ledger struct {
	key      persist.Key
	store    persist.Store
	products adapter.ProductRepository
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	entries []model.WishlistEntry
	gen     persist.Generation
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates an empty wishlist for owner.
func New(owner string, store persist.Store, products adapter.ProductRepository, opts ...Option) *Ledger {
	l := &Ledger{
		key:      persist.Key{Owner: owner, Kind: persist.KindWishlist},
		store:    store,
		products: products,
		now:      time.Now,
		logger:   slog.Default(),
		entries:  []model.WishlistEntry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Toggle adds productID if absent and removes it if present. Adding a
// product the catalog does not know is a NOT_FOUND error.
func (l *Ledger) Toggle(ctx context.Context, productID int64) (model.WishlistAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	if i := l.indexOf(productID); i >= 0 {
		next := make([]model.WishlistEntry, 0, len(l.entries)-1)
		next = append(next, l.entries[:i]...)
		next = append(next, l.entries[i+1:]...)
		if err := l.commit(ctx, next); err != nil {
			return "", err
		}
		return model.WishlistRemoved, nil
	}

	if _, err := l.products.GetByID(ctx, productID); err != nil {
		return "", err
	}

	next := make([]model.WishlistEntry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	next = append(next, model.WishlistEntry{ProductID: productID, AddedAt: l.now()})
	if err := l.commit(ctx, next); err != nil {
		return "", err
	}
	return model.WishlistAdded, nil
}

// Contains reports whether productID is saved.
func (l *Ledger) Contains(productID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexOf(productID) >= 0
}

// All returns the entries in the order they were saved.
func (l *Ledger) All() []model.WishlistEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.WishlistEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear removes every entry.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen.Next()

	return l.commit(ctx, []model.WishlistEntry{})
}

// Products joins the entries with the catalog. Products that no longer
// exist are left out.
func (l *Ledger) Products(ctx context.Context) ([]model.Product, error) {
	entries := l.All()
	products := make([]model.Product, 0, len(entries))
	for _, e := range entries {
		p, err := l.products.GetByID(ctx, e.ProductID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return []model.Product{}, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// Load replaces the in-memory wishlist with the persisted one, unless the
// wishlist changed while loading, in which case persist.ErrStale is returned.
func (l *Ledger) Load(ctx context.Context) error {
	ticket := l.gen.Next()

	snapshot, err := l.store.Load(ctx, l.key)
	if err != nil {
		return asRemote(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.gen.IsCurrent(ticket) {
		l.logger.DebugContext(ctx, "discarding stale wishlist load", slog.String("owner", l.key.Owner))
		return persist.ErrStale
	}

	seen := make(map[int64]bool, len(snapshot.Items))
	entries := make([]model.WishlistEntry, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		entries = append(entries, model.WishlistEntry{ProductID: item.ProductID, AddedAt: item.AddedAt})
	}
	l.entries = entries
	return nil
}

func (l *Ledger) commit(ctx context.Context, next []model.WishlistEntry) error {
	snapshot := persist.Empty(l.key)
	snapshot.SavedAt = l.now()
	for _, e := range next {
		snapshot.Items = append(snapshot.Items, persist.Item{ProductID: e.ProductID, AddedAt: e.AddedAt})
	}

	if err := l.store.Save(ctx, snapshot); err != nil {
		l.logger.ErrorContext(ctx, "failed to persist wishlist",
			slog.String("owner", l.key.Owner),
			slog.String("error", err.Error()),
		)
		return asRemote(err)
	}
	l.entries = next
	return nil
}

func (l *Ledger) indexOf(productID int64) int {
	for i, e := range l.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func asRemote(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return model.NewRemoteError("wishlist store", err)
}
