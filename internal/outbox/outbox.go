package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/edusync/internal/metrics"
	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/util"
)

// Queue defines persistence methods for the sync_status table: the durable
// log of local mutations awaiting transmission to the remote system.
type Queue interface {
	// Enqueue appends a pending entry. If tx is nil, it opens/commits an
	// internal transaction; otherwise it joins the caller's tx so the domain
	// write and the enqueue commit atomically. Returns the entry id.
	Enqueue(ctx context.Context, tx *sqlx.Tx, entityType model.EntityType, entityID string, action model.Action, payload []byte) (string, error)

	// Pending returns entries awaiting sync, FIFO by creation time so
	// mutations to the same entity are never reordered. batchSize <= 0
	// returns everything.
	Pending(ctx context.Context, batchSize int) ([]model.OutboxEntry, error)

	// MarkSynced flags an entry as delivered. Idempotent.
	MarkSynced(ctx context.Context, id string) error

	// RecordFailure increments the attempt counter and stamps the attempt
	// time. When maxAttempts > 0 and the budget is exhausted the entry
	// becomes abandoned (terminal, excluded from future drains). Returns the
	// resulting status.
	RecordFailure(ctx context.Context, id string, maxAttempts int) (model.EntryStatus, error)

	// Abandoned lists entries that exceeded their retry budget, for the host
	// application to surface.
	Abandoned(ctx context.Context) ([]model.OutboxEntry, error)

	// PendingCount is the "pending changes" badge value.
	PendingCount(ctx context.Context) (int, error)

	// PruneSynced deletes synced entries older than the retention window.
	// Pending and abandoned entries are never pruned.
	PruneSynced(ctx context.Context, olderThan time.Duration) (int, error)
}

// QueueImpl is a sqlx-backed implementation.
type QueueImpl struct {
	db *sqlx.DB
}

// NewQueue constructs a QueueImpl.
func NewQueue(db *sqlx.DB) *QueueImpl {
	return &QueueImpl{db: db}
}

var _ Queue = (*QueueImpl)(nil)

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (q *QueueImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

func (q *QueueImpl) Enqueue(ctx context.Context, tx *sqlx.Tx, entityType model.EntityType, entityID string, action model.Action, payload []byte) (string, error) {
	if !action.Valid() {
		return "", fmt.Errorf("outbox: invalid action %q", action)
	}

	id := util.NewULID()
	const query = `
		INSERT INTO sync_status (id, entity_type, entity_id, action, payload, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 'pending', 0, ?)
	`
	err := q.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			id, entityType.String(), entityID, action.String(), payload, time.Now().UTC())
		return err
	})
	if err != nil {
		return "", err
	}

	metrics.OutboxEntriesTotal.WithLabelValues("enqueued", entityType.String()).Inc()
	return id, nil
}

func (q *QueueImpl) Pending(ctx context.Context, batchSize int) ([]model.OutboxEntry, error) {
	// ULIDs encode creation time, so ordering by id is FIFO by createdAt
	// with a deterministic tie-break within the same millisecond.
	query := `
		SELECT id, entity_type, entity_id, action, payload, status, attempts, last_attempt, created_at
		  FROM sync_status
		 WHERE status = 'pending'
		 ORDER BY id ASC
	`
	args := []any{}
	if batchSize > 0 {
		query += " LIMIT ?"
		args = append(args, batchSize)
	}

	entries := []model.OutboxEntry{}
	if err := q.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

func (q *QueueImpl) MarkSynced(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sync_status SET status = 'synced' WHERE id = ?`, id)
	return err
}

func (q *QueueImpl) RecordFailure(ctx context.Context, id string, maxAttempts int) (model.EntryStatus, error) {
	var status model.EntryStatus
	err := q.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE sync_status
			   SET attempts = attempts + 1,
			       last_attempt = ?,
			       status = CASE WHEN ? > 0 AND attempts + 1 >= ? THEN 'abandoned' ELSE status END
			 WHERE id = ? AND status = 'pending'
		`, time.Now().UTC(), maxAttempts, maxAttempts, id)
		if err != nil {
			return err
		}

		return tx.QueryRowxContext(ctx,
			`SELECT status FROM sync_status WHERE id = ?`, id).Scan(&status)
	})
	if err != nil {
		return "", err
	}

	if status == model.EntryAbandoned {
		metrics.OutboxEntriesTotal.WithLabelValues("abandoned", "").Inc()
	}
	return status, nil
}

func (q *QueueImpl) Abandoned(ctx context.Context) ([]model.OutboxEntry, error) {
	entries := []model.OutboxEntry{}
	err := q.db.SelectContext(ctx, &entries, `
		SELECT id, entity_type, entity_id, action, payload, status, attempts, last_attempt, created_at
		  FROM sync_status
		 WHERE status = 'abandoned'
		 ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (q *QueueImpl) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM sync_status WHERE status = 'pending'`)
	return n, err
}

func (q *QueueImpl) PruneSynced(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM sync_status WHERE status = 'synced' AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
