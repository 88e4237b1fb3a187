package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/store"
)

func setupQueue(t *testing.T) (*QueueImpl, *sqlx.DB) {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.New(db).Migrate(context.Background()))
	return NewQueue(db), db
}

func TestEnqueue_PendingFIFO(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	id1, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionCreate, []byte(`{"a":1}`))
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionUpdate, []byte(`{"a":2}`))
	require.NoError(t, err)
	id3, err := q.Enqueue(ctx, nil, model.EntityLesson, "l1", model.ActionCreate, []byte(`{"b":1}`))
	require.NoError(t, err)

	entries, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{id1, id2, id3},
		[]string{entries[0].ID, entries[1].ID, entries[2].ID},
		"drain order matches enqueue order")

	assert.Equal(t, model.EntryPending, entries[0].Status)
	assert.Equal(t, 0, entries[0].Attempts)
	assert.False(t, entries[0].LastAttempt.Valid)
	assert.Equal(t, []byte(`{"a":1}`), entries[0].Payload)

	limited, err := q.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, id1, limited[0].ID)
	assert.Equal(t, id2, limited[1].ID)
}

func TestEnqueue_InvalidAction(t *testing.T) {
	q, _ := setupQueue(t)

	_, err := q.Enqueue(context.Background(), nil, model.EntityCourse, "c1", model.Action("upsert"), nil)
	require.Error(t, err)
}

func TestEnqueue_JoinsCallerTransaction(t *testing.T) {
	q, db := setupQueue(t)
	ctx := context.Background()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, tx, model.EntityCourse, "c1", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rolled-back enqueue leaves nothing behind")
}

func TestMarkSynced_Idempotent(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, q.MarkSynced(ctx, id))
	require.NoError(t, q.MarkSynced(ctx, id))

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordFailure_AbandonsAfterBudget(t *testing.T) {
	q, db := setupQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)

	status, err := q.RecordFailure(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, model.EntryPending, status)

	status, err = q.RecordFailure(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, model.EntryAbandoned, status)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending, "abandoned entries never drain again")

	abandoned, err := q.Abandoned(ctx)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	assert.Equal(t, id, abandoned[0].ID)
	assert.Equal(t, 2, abandoned[0].Attempts)
	assert.True(t, abandoned[0].LastAttempt.Valid)

	// a terminal entry is immutable
	status, err = q.RecordFailure(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, model.EntryAbandoned, status)

	var attempts int
	require.NoError(t, db.Get(&attempts, `SELECT attempts FROM sync_status WHERE id = ?`, id))
	assert.Equal(t, 2, attempts)
}

func TestRecordFailure_UnboundedRetries(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		status, err := q.RecordFailure(ctx, id, 0)
		require.NoError(t, err)
		assert.Equal(t, model.EntryPending, status)
	}

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 5, pending[0].Attempts)
}

func TestPruneSynced(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	syncedID, err := q.Enqueue(ctx, nil, model.EntityCourse, "c1", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)
	pendingID, err := q.Enqueue(ctx, nil, model.EntityCourse, "c2", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)
	abandonedID, err := q.Enqueue(ctx, nil, model.EntityCourse, "c3", model.ActionCreate, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, q.MarkSynced(ctx, syncedID))
	_, err = q.RecordFailure(ctx, abandonedID, 1)
	require.NoError(t, err)

	// negative window puts the cutoff in the future: everything synced qualifies
	n, err := q.PruneSynced(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pendingID, pending[0].ID)

	abandoned, err := q.Abandoned(ctx)
	require.NoError(t, err)
	require.Len(t, abandoned, 1, "prune never touches abandoned entries")

	// entries inside the retention window survive
	n, err = q.PruneSynced(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
