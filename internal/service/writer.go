// Package service holds the shared write path for domain services: every
// mutation persists the record and appends its outbox entry inside a single
// local transaction, so a crash can never drop a pending sync.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/outbox"
	"github.com/openlearn/edusync/internal/store"
)

// ErrNotFound is returned by Update/Delete when no record matches the id.
var ErrNotFound = errors.New("record not found")

// Writer couples the local store with the outbox.
type Writer struct {
	store *store.Store
	queue outbox.Queue
}

func NewWriter(s *store.Store, q outbox.Queue) *Writer {
	return &Writer{store: s, queue: q}
}

// Store exposes the underlying local store for read paths.
func (w *Writer) Store() *store.Store { return w.store }

func envelopePayload(t model.EntityType, id string, action model.Action, rec model.Record) ([]byte, error) {
	payload, err := json.Marshal(model.Envelope{
		EntityType: t,
		EntityID:   id,
		Action:     action,
		Record:     rec,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return payload, nil
}

// Create inserts the record and enqueues a create mutation atomically.
func (w *Writer) Create(ctx context.Context, t model.EntityType, rec model.Record) error {
	payload, err := envelopePayload(t, rec.ID(), model.ActionCreate, rec)
	if err != nil {
		return err
	}

	return w.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := w.store.Insert(ctx, tx, t.Collection(), rec); err != nil {
			return err
		}
		_, err := w.queue.Enqueue(ctx, tx, t, rec.ID(), model.ActionCreate, payload)
		return err
	})
}

// Update applies a partial field merge and enqueues the merged record.
// ErrNotFound when the id does not exist locally.
func (w *Writer) Update(ctx context.Context, t model.EntityType, id string, fields map[string]any) error {
	return w.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := w.store.Update(ctx, tx, t.Collection(), fields, store.ByID(id))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, t, id)
		}

		rec, err := w.store.FindOne(ctx, tx, t.Collection(), store.ByID(id))
		if err != nil {
			return err
		}

		payload, err := envelopePayload(t, id, model.ActionUpdate, rec)
		if err != nil {
			return err
		}
		_, err = w.queue.Enqueue(ctx, tx, t, id, model.ActionUpdate, payload)
		return err
	})
}

// Delete removes the record and enqueues a delete mutation.
// ErrNotFound when the id does not exist locally.
func (w *Writer) Delete(ctx context.Context, t model.EntityType, id string) error {
	return w.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := w.store.Delete(ctx, tx, t.Collection(), store.ByID(id))
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, t, id)
		}

		payload, err := envelopePayload(t, id, model.ActionDelete, nil)
		if err != nil {
			return err
		}
		_, err = w.queue.Enqueue(ctx, tx, t, id, model.ActionDelete, payload)
		return err
	})
}
