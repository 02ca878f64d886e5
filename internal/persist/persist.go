// Package persist stores cart and wishlist snapshots keyed by owner.
//
// A snapshot is the whole ledger at one point in time. Stores replace the
// previous snapshot on Save ("last write wins") and return an empty snapshot
// from Load when the owner has never saved.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/mod/semver"

	"storefront/internal/model"
)

// SchemaVersion is written into every snapshot. Snapshots with a different
// major version cannot be read.
const SchemaVersion = "v1.0.0"

// Kind distinguishes the ledgers an owner has.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// Key identifies one ledger.
type Key struct {
	Owner string
	Kind  Kind
}

func (k Key) String() string {
	return string(k.Kind) + "/" + k.Owner
}

// Item is one persisted ledger line. Wishlist items leave Quantity zero.
type Item struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Snapshot is the persisted form of a ledger.
type Snapshot struct {
	Schema  string    `json:"schema"`
	Owner   string    `json:"owner"`
	Kind    Kind      `json:"kind"`
	Items   []Item    `json:"items"`
	SavedAt time.Time `json:"saved_at"`
}

// Key returns the key the snapshot is stored under.
func (s *Snapshot) Key() Key {
	return Key{Owner: s.Owner, Kind: s.Kind}
}

// Empty returns a snapshot with no items for key.
func Empty(key Key) *Snapshot {
	return &Snapshot{
		Schema: SchemaVersion,
		Owner:  key.Owner,
		Kind:   key.Kind,
		Items:  []Item{},
	}
}

// Store loads and saves snapshots.
type Store interface {
	// Load returns the snapshot for key, or an empty one if none was saved.
	Load(ctx context.Context, key Key) (*Snapshot, error)

	// Save replaces the snapshot stored under s.Key().
	Save(ctx context.Context, s *Snapshot) error
}

// CheckSchema rejects snapshots this build cannot read: a different major
// version, or a version newer than SchemaVersion.
func CheckSchema(schema string) error {
	if !semver.IsValid(schema) {
		return model.NewValidationError("snapshot schema", fmt.Sprintf("%q is not a semantic version", schema))
	}
	if semver.Major(schema) != semver.Major(SchemaVersion) {
		return model.NewValidationError("snapshot schema",
			fmt.Sprintf("%s is incompatible with %s", schema, SchemaVersion))
	}
	if semver.Compare(schema, SchemaVersion) > 0 {
		return model.NewValidationError("snapshot schema",
			fmt.Sprintf("%s is newer than supported %s", schema, SchemaVersion))
	}
	return nil
}

// ErrStale is returned by a ledger load whose result was discarded because
// the ledger changed while the load was in flight.
var ErrStale = errors.New("stale snapshot discarded")

// Generation hands out tickets so that a slow load can tell whether the
// ledger changed after it started. Every load and mutation takes a ticket;
// a load may apply its result only if its ticket is still the latest.
type Generation struct {
	n atomic.Uint64
}

// Next takes a new ticket.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// IsCurrent reports whether no ticket has been taken since t.
func (g *Generation) IsCurrent(t uint64) bool {
	return g.n.Load() == t
}
