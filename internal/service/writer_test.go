package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/outbox"
	"github.com/openlearn/edusync/internal/store"
)

func setupWriter(t *testing.T) (*Writer, outbox.Queue, *store.Store) {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := store.New(db)
	require.NoError(t, s.Migrate(context.Background()))
	q := outbox.NewQueue(db)
	return NewWriter(s, q), q, s
}

func decodeEnvelope(t *testing.T, payload []byte) model.Envelope {
	t.Helper()
	var env model.Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	return env
}

func TestCreate_WritesRecordAndOutboxTogether(t *testing.T) {
	w, q, s := setupWriter(t)
	ctx := context.Background()

	rec := model.NewRecord("c1")
	rec["title"] = "Algebra"
	require.NoError(t, w.Create(ctx, model.EntityCourse, rec))

	got, err := s.FindOne(ctx, nil, "courses", store.ByID("c1"))
	require.NoError(t, err)
	require.NotNil(t, got)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.EntityCourse, pending[0].EntityType)
	assert.Equal(t, model.ActionCreate, pending[0].Action)
	assert.Equal(t, "c1", pending[0].EntityID)

	env := decodeEnvelope(t, pending[0].Payload)
	assert.Equal(t, "c1", env.Record.ID())
	assert.Equal(t, "Algebra", env.Record["title"])
}

func TestCreate_DuplicateLeavesNoOutboxEntry(t *testing.T) {
	w, q, _ := setupWriter(t)
	ctx := context.Background()

	require.NoError(t, w.Create(ctx, model.EntityCourse, model.NewRecord("c1")))

	err := w.Create(ctx, model.EntityCourse, model.NewRecord("c1"))
	require.ErrorIs(t, err, store.ErrConstraint)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the successful create enqueued")
}

func TestUpdate_EnqueuesMergedRecord(t *testing.T) {
	w, q, _ := setupWriter(t)
	ctx := context.Background()

	rec := model.NewRecord("c1")
	rec["title"] = "Algebra"
	rec["category"] = "math"
	require.NoError(t, w.Create(ctx, model.EntityCourse, rec))

	require.NoError(t, w.Update(ctx, model.EntityCourse, "c1", map[string]any{"title": "Algebra II"}))

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ActionUpdate, pending[1].Action)

	env := decodeEnvelope(t, pending[1].Payload)
	assert.Equal(t, "Algebra II", env.Record["title"])
	assert.Equal(t, "math", env.Record["category"], "payload carries the whole merged record")
}

func TestUpdate_NotFound(t *testing.T) {
	w, q, _ := setupWriter(t)
	ctx := context.Background()

	err := w.Update(ctx, model.EntityCourse, "nope", map[string]any{"title": "x"})
	require.ErrorIs(t, err, ErrNotFound)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdate_FailureRollsBackBothWrites(t *testing.T) {
	w, q, s := setupWriter(t)
	ctx := context.Background()

	rec := model.NewRecord("c1")
	rec["title"] = "Algebra"
	require.NoError(t, w.Create(ctx, model.EntityCourse, rec))

	// an unencodable field value fails the store write mid-transaction
	err := w.Update(ctx, model.EntityCourse, "c1", map[string]any{"bad": make(chan int)})
	require.Error(t, err)

	got, err := s.FindOne(ctx, nil, "courses", store.ByID("c1"))
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got["title"], "record untouched after rollback")

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "no orphan outbox entry")
}

func TestDelete(t *testing.T) {
	w, q, s := setupWriter(t)
	ctx := context.Background()

	require.NoError(t, w.Create(ctx, model.EntityCourse, model.NewRecord("c1")))
	require.NoError(t, w.Delete(ctx, model.EntityCourse, "c1"))

	got, err := s.FindOne(ctx, nil, "courses", store.ByID("c1"))
	require.NoError(t, err)
	assert.Nil(t, got)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ActionDelete, pending[1].Action)

	env := decodeEnvelope(t, pending[1].Payload)
	assert.Nil(t, env.Record, "delete envelopes carry no record")

	err = w.Delete(ctx, model.EntityCourse, "c1")
	require.ErrorIs(t, err, ErrNotFound)
}
