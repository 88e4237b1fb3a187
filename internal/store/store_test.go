package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/openlearn/edusync/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func rec(id string, extra map[string]any) model.Record {
	r := model.NewRecord(id)
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func TestInsert_DuplicateID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "courses", rec("c1", nil)))

	err := s.Insert(ctx, nil, "courses", rec("c1", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraint)

	// same id in another collection is fine
	require.NoError(t, s.Insert(ctx, nil, "lessons", rec("c1", nil)))
}

func TestUpdate_PartialMerge(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "courses", rec("c1", map[string]any{
		"title":    "Algebra",
		"category": "math",
	})))

	n, err := s.Update(ctx, nil, "courses", map[string]any{"title": "Algebra II"}, ByID("c1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.FindOne(ctx, nil, "courses", ByID("c1"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Algebra II", got["title"])
	assert.Equal(t, "math", got["category"], "untouched fields survive the merge")
	assert.False(t, got.UpdatedAt().IsZero())
}

func TestUpdate_NoMatchIsNoop(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "courses", rec("c1", map[string]any{"title": "x"})))

	n, err := s.Update(ctx, nil, "courses", map[string]any{"title": "y"}, ByID("nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.FindOne(ctx, nil, "courses", ByID("c1"))
	require.NoError(t, err)
	assert.Equal(t, "x", got["title"])
}

func TestDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "courses", rec("c1", nil)))
	require.NoError(t, s.Insert(ctx, nil, "courses", rec("c2", nil)))

	n, err := s.Delete(ctx, nil, "courses", ByID("c1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Delete(ctx, nil, "courses", ByID("c1"))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "deleting a missing record is a no-op")

	count, err := s.Count(ctx, "courses")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFindOne_AbsentReturnsNil(t *testing.T) {
	s := setupStore(t)

	got, err := s.FindOne(context.Background(), nil, "courses", ByID("nope"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindMany_InsertionOrderAndSort(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "lessons", rec("l1", map[string]any{"title": "c"})))
	require.NoError(t, s.Insert(ctx, nil, "lessons", rec("l2", map[string]any{"title": "a"})))
	require.NoError(t, s.Insert(ctx, nil, "lessons", rec("l3", map[string]any{"title": "b"})))

	got, err := s.FindMany(ctx, nil, "lessons", nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "l1", got[0].ID())
	assert.Equal(t, "l2", got[1].ID())
	assert.Equal(t, "l3", got[2].ID())

	got, err = s.FindMany(ctx, nil, "lessons", nil, &Order{Field: "title"})
	require.NoError(t, err)
	assert.Equal(t, "l2", got[0].ID())
	assert.Equal(t, "l3", got[1].ID())
	assert.Equal(t, "l1", got[2].ID())

	got, err = s.FindMany(ctx, nil, "lessons", nil, &Order{Field: "title", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, "l1", got[0].ID())
}

func TestFindMany_PredicateFiltersNumbers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, nil, "timetable", rec("t1", map[string]any{"dayOfWeek": 1})))
	require.NoError(t, s.Insert(ctx, nil, "timetable", rec("t2", map[string]any{"dayOfWeek": 2})))

	// JSON numbers decode as float64
	got, err := s.FindMany(ctx, nil, "timetable", Eq("dayOfWeek", float64(2)), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.Insert(ctx, tx, "courses", rec("c1", nil)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := s.Count(ctx, "courses")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed transaction leaves no record behind")
}

func TestFindMany_InsideTransaction(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.Insert(ctx, tx, "courses", rec("c1", nil)); err != nil {
			return err
		}
		got, err := s.FindOne(ctx, tx, "courses", ByID("c1"))
		if err != nil {
			return err
		}
		require.NotNil(t, got, "uncommitted write is visible inside its own tx")
		return nil
	})
	require.NoError(t, err)
}
