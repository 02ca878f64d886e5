package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"storefront/internal/model"
	"storefront/internal/reconcile"
)

// schemaSQL creates the tables Postgres needs. Safe to run repeatedly.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_snapshots (
	owner    TEXT        NOT NULL,
	kind     TEXT        NOT NULL,
	schema   TEXT        NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner, kind)
);
CREATE TABLE IF NOT EXISTS ledger_items (
	owner      TEXT        NOT NULL,
	kind       TEXT        NOT NULL,
	product_id BIGINT      NOT NULL,
	quantity   INTEGER     NOT NULL DEFAULT 0,
	added_at   TIMESTAMPTZ NOT NULL,
	seq        INTEGER     NOT NULL,
	PRIMARY KEY (owner, kind, product_id)
);`

// Postgres stores one row per ledger item plus a header row per snapshot.
// Save diffs the stored items against the new snapshot and applies only the
// changes, inside a single transaction.
type Postgres struct {
	db   *sql.DB
	psql squirrel.StatementBuilderType
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return NewPostgres(db), nil
}

// Migrate creates the ledger tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrating ledger tables: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Load reads the snapshot header and its items in ledger order.
func (p *Postgres) Load(ctx context.Context, key Key) (*Snapshot, error) {
	s := Empty(key)

	err := p.psql.
		Select("schema", "saved_at").
		From("ledger_snapshots").
		Where(keyClause(key)).
		RunWith(p.db).
		QueryRowContext(ctx).
		Scan(&s.Schema, &s.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return nil, model.NewRemoteError("ledger store", err)
	}
	if err := CheckSchema(s.Schema); err != nil {
		return nil, err
	}

	rows, err := p.psql.
		Select("product_id", "quantity", "added_at").
		From("ledger_items").
		Where(keyClause(key)).
		OrderBy("seq").
		RunWith(p.db).
		QueryContext(ctx)
	if err != nil {
		return nil, model.NewRemoteError("ledger store", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, model.NewRemoteError("ledger store", fmt.Errorf("scanning item: %w", err))
		}
		s.Items = append(s.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewRemoteError("ledger store", err)
	}
	return s, nil
}

// Save replaces the stored snapshot with s.
func (p *Postgres) Save(ctx context.Context, s *Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewRemoteError("ledger store", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := p.save(ctx, tx, s); err != nil {
		return model.NewRemoteError("ledger store", err)
	}
	if err := tx.Commit(); err != nil {
		return model.NewRemoteError("ledger store", fmt.Errorf("committing: %w", err))
	}
	return nil
}

func (p *Postgres) save(ctx context.Context, tx *sql.Tx, s *Snapshot) error {
	key := s.Key()

	current, err := p.lockItems(ctx, tx, key)
	if err != nil {
		return err
	}

	addedAt := make(map[int64]time.Time, len(s.Items))
	desired := make([]reconcile.Item, len(s.Items))
	for i, item := range s.Items {
		desired[i] = reconcile.Item{ProductID: item.ProductID, Quantity: item.Quantity, Position: i}
		addedAt[item.ProductID] = item.AddedAt
	}
	diff := reconcile.DiffItems(current, desired)

	if len(diff.ToRemove) > 0 {
		_, err := p.psql.
			Delete("ledger_items").
			Where(keyClause(key)).
			Where(squirrel.Expr("product_id = ANY(?)", pq.Array(diff.ToRemove))).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("deleting items: %w", err)
		}
	}

	for _, u := range diff.ToUpdate {
		res, err := p.psql.
			Update("ledger_items").
			SetMap(map[string]interface{}{
				"quantity": u.NewQuantity,
				"seq":      u.NewPosition,
			}).
			Where(keyClause(key)).
			Where(squirrel.Eq{"product_id": u.ProductID}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("updating item %d: %w", u.ProductID, err)
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting affected rows: %w", err)
		}
		if rowsAffected != 1 {
			return fmt.Errorf("update affected %d rows, but expected exactly 1", rowsAffected)
		}
	}

	if len(diff.ToAdd) > 0 {
		insert := p.psql.
			Insert("ledger_items").
			Columns("owner", "kind", "product_id", "quantity", "added_at", "seq")
		for _, a := range diff.ToAdd {
			insert = insert.Values(key.Owner, string(key.Kind), a.ProductID, a.Quantity, addedAt[a.ProductID], a.Position)
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting items: %w", err)
		}
	}

	_, err = p.psql.
		Insert("ledger_snapshots").
		Columns("owner", "kind", "schema", "saved_at").
		Values(key.Owner, string(key.Kind), SchemaVersion, s.SavedAt).
		Suffix("ON CONFLICT (owner, kind) DO UPDATE SET schema = EXCLUDED.schema, saved_at = EXCLUDED.saved_at").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	return nil
}

// lockItems reads the stored items for key and locks them for the transaction.
func (p *Postgres) lockItems(ctx context.Context, tx *sql.Tx, key Key) ([]reconcile.Item, error) {
	rows, err := p.psql.
		Select("product_id", "quantity", "seq").
		From("ledger_items").
		Where(keyClause(key)).
		OrderBy("seq").
		Suffix("FOR UPDATE").
		RunWith(tx).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading current items: %w", err)
	}
	defer rows.Close()

	var items []reconcile.Item
	for rows.Next() {
		var item reconcile.Item
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Position); err != nil {
			return nil, fmt.Errorf("scanning current item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// keyClause matches rows of one ledger. Owner precedes kind in the
// generated SQL.
func keyClause(key Key) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"owner": key.Owner},
		squirrel.Eq{"kind": string(key.Kind)},
	}
}

// Ensure Postgres implements Store
var _ Store = (*Postgres)(nil)
