package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/edusync/internal/model"
)

// ErrConstraint is returned by Insert when a record with the same id already
// exists in the collection.
var ErrConstraint = errors.New("record already exists")

// Predicate filters records on read and write paths.
type Predicate func(model.Record) bool

// ByID matches the record with the given id.
func ByID(id string) Predicate {
	return func(r model.Record) bool { return r.ID() == id }
}

// Eq matches records whose field equals want. Numeric fields decode as
// float64, so pass float64 for numbers.
func Eq(field string, want any) Predicate {
	return func(r model.Record) bool { return r[field] == want }
}

// Order sorts FindMany results by a document field (string comparison).
type Order struct {
	Field string
	Desc  bool
}

// Store is the durable local store: CRUD over named record collections,
// usable without network access. Backed by a single sqlite table keyed by
// (collection, id); insertion order is the rowid.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for collaborators (outbox, content refs)
// that share transactions with the store.
func (s *Store) DB() *sqlx.DB { return s.db }

// Migrate creates the schema. Failure here is fatal for the engine.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a single local transaction, so a domain write and
// its outbox enqueue commit or roll back together.
func (s *Store) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return s.withTx(ctx, nil, fn)
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (s *Store) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

type recordRow struct {
	ID       string `db:"id"`
	Document []byte `db:"document"`
}

func decodeRow(raw []byte) (model.Record, error) {
	var r model.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode record document: %w", err)
	}
	return r, nil
}

// Insert adds a new record. ErrConstraint when the id is already present.
func (s *Store) Insert(ctx context.Context, tx *sqlx.Tx, collection string, rec model.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record document: %w", err)
	}

	return s.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		var one int
		err := tx.QueryRowxContext(ctx,
			`SELECT 1 FROM records WHERE collection = ? AND id = ? LIMIT 1`,
			collection, rec.ID(),
		).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s/%s", ErrConstraint, collection, rec.ID())
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (collection, id, document, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, collection, rec.ID(), doc, now, now)
		return err
	})
}

// Put upserts a record, replacing the whole document on conflict. Used by the
// pull path after the merge policy has already decided the winner.
func (s *Store) Put(ctx context.Context, tx *sqlx.Tx, collection string, rec model.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record document: %w", err)
	}

	return s.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (collection, id, document, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET
				document = excluded.document,
				updated_at = excluded.updated_at
		`, collection, rec.ID(), doc, now, now)
		return err
	})
}

// Update applies a partial field merge to all matching records and bumps
// their updatedAt. Zero matches is a no-op, not an error. The read-merge-write
// cycle runs inside one transaction so readers never observe a partial record.
func (s *Store) Update(ctx context.Context, tx *sqlx.Tx, collection string, fields map[string]any, pred Predicate) (int, error) {
	updated := 0
	err := s.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		rows := []recordRow{}
		if err := tx.SelectContext(ctx, &rows,
			`SELECT id, document FROM records WHERE collection = ? ORDER BY seq`, collection); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, row := range rows {
			rec, err := decodeRow(row.Document)
			if err != nil {
				return err
			}
			if pred != nil && !pred(rec) {
				continue
			}

			for k, v := range fields {
				rec[k] = v
			}
			rec.Touch()

			doc, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record document: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE records SET document = ?, updated_at = ?
				WHERE collection = ? AND id = ?
			`, doc, now, collection, row.ID); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	return updated, err
}

// Delete removes matching records. Zero matches is a no-op.
func (s *Store) Delete(ctx context.Context, tx *sqlx.Tx, collection string, pred Predicate) (int, error) {
	deleted := 0
	err := s.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		rows := []recordRow{}
		if err := tx.SelectContext(ctx, &rows,
			`SELECT id, document FROM records WHERE collection = ? ORDER BY seq`, collection); err != nil {
			return err
		}

		for _, row := range rows {
			rec, err := decodeRow(row.Document)
			if err != nil {
				return err
			}
			if pred != nil && !pred(rec) {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM records WHERE collection = ? AND id = ?`, collection, row.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// FindOne returns the first matching record in insertion order, or nil when
// nothing matches.
func (s *Store) FindOne(ctx context.Context, tx *sqlx.Tx, collection string, pred Predicate) (model.Record, error) {
	recs, err := s.FindMany(ctx, tx, collection, pred, nil)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// FindMany returns matching records; nil predicate returns the whole
// collection. Default order is insertion order. Pass the enclosing tx when
// reading inside a transaction: the pool holds a single connection, so a
// read outside the tx would wait on the tx itself.
func (s *Store) FindMany(ctx context.Context, tx *sqlx.Tx, collection string, pred Predicate, orderBy *Order) ([]model.Record, error) {
	rows := []recordRow{}
	var err error
	if tx != nil {
		err = tx.SelectContext(ctx, &rows,
			`SELECT id, document FROM records WHERE collection = ? ORDER BY seq`, collection)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, document FROM records WHERE collection = ? ORDER BY seq`, collection)
	}
	if err != nil {
		return nil, err
	}

	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRow(row.Document)
		if err != nil {
			return nil, err
		}
		if pred != nil && !pred(rec) {
			continue
		}
		out = append(out, rec)
	}

	if orderBy != nil {
		field, desc := orderBy.Field, orderBy.Desc
		sort.SliceStable(out, func(i, j int) bool {
			a := fmt.Sprint(out[i][field])
			b := fmt.Sprint(out[j][field])
			if desc {
				return a > b
			}
			return a < b
		})
	}

	return out, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection)
	return n, err
}
