// Package reconcile computes the delta between stored and desired ledger items.
// Stores that keep one row per item use it to turn a full snapshot save into
// the minimal set of inserts, updates and deletes.
package reconcile

// ItemDiff describes the mutations needed to reconcile ledger items.
// Operations should be applied in order: Remove → Update → Add
// to prevent conflicts (e.g., updating a removed item).
type ItemDiff struct {
	ToAdd    []Item   // Products in desired but not current
	ToRemove []int64  // Products in current but not desired
	ToUpdate []Update // Products in both with a different quantity or position
}

// Item is one ledger line as stored.
type Item struct {
	ProductID int64
	Quantity  int
	Position  int // order within the ledger, zero based
}

// Update specifies a change to an existing item.
type Update struct {
	ProductID   int64
	OldQuantity int // informational
	NewQuantity int
	NewPosition int
}

// IsEmpty returns true if no changes are needed.
func (d *ItemDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// DiffItems computes the delta between current and desired items.
// Matching is by ProductID. Output follows the order of the inputs
// (desired order for adds and updates, current order for removes) so the
// resulting statements are reproducible.
//
// Algorithm:
//  1. Build lookup maps for O(1) access
//  2. For each desired item: if exists in current with different qty/position → update; if not exists → add
//  3. For each current item: if not in desired → remove
func DiffItems(current, desired []Item) *ItemDiff {
	diff := &ItemDiff{}

	currentByID := make(map[int64]Item, len(current))
	for _, item := range current {
		currentByID[item.ProductID] = item
	}

	desiredByID := make(map[int64]bool, len(desired))
	for _, want := range desired {
		desiredByID[want.ProductID] = true

		have, exists := currentByID[want.ProductID]
		if !exists {
			diff.ToAdd = append(diff.ToAdd, want)
			continue
		}
		if have.Quantity != want.Quantity || have.Position != want.Position {
			diff.ToUpdate = append(diff.ToUpdate, Update{
				ProductID:   want.ProductID,
				OldQuantity: have.Quantity,
				NewQuantity: want.Quantity,
				NewPosition: want.Position,
			})
		}
	}

	for _, have := range current {
		if !desiredByID[have.ProductID] {
			diff.ToRemove = append(diff.ToRemove, have.ProductID)
		}
	}

	return diff
}
