package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/openlearn/edusync/internal/connectivity"
	"github.com/openlearn/edusync/internal/logger"
	"github.com/openlearn/edusync/internal/metrics"
	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/outbox"
	"github.com/openlearn/edusync/internal/remote"
	"github.com/openlearn/edusync/internal/store"
)

// ErrOffline is returned by DownloadFromServer when invoked without
// connectivity. This is a hard precondition, not retried automatically.
var ErrOffline = errors.New("device is offline")

// Connectivity is the slice of the monitor the driver needs.
type Connectivity interface {
	IsOnline() bool
	Subscribe() <-chan connectivity.Event
}

// Options tune the drain loop. Zero values mean: drain everything per pass,
// retry entries forever, sync every 5 minutes, keep synced entries 30 days.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
	Retention   time.Duration
}

// Driver reconciles the outbox with the remote system. Exactly one drain
// pass runs at a time; overlapping triggers (timer, connectivity flip,
// manual refresh) are coalesced, not queued.
type Driver struct {
	queue outbox.Queue
	api   remote.API
	net   Connectivity
	local *store.Store
	opts  Options

	inProgress atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
}

func New(queue outbox.Queue, api remote.API, net Connectivity, local *store.Store, opts Options) *Driver {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	return &Driver{queue: queue, api: api, net: net, local: local, opts: opts}
}

// InProgress reports whether a drain pass is currently running.
func (d *Driver) InProgress() bool { return d.inProgress.Load() }

// LastSyncTime is the completion time of the most recent drain pass; zero
// before the first one.
func (d *Driver) LastSyncTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSync
}

// SyncPendingChanges drains the outbox against the remote API. No-op when
// offline or when a pass is already in progress. Individual entry failures
// are recorded and never propagate; the returned error only reflects local
// store unavailability.
func (d *Driver) SyncPendingChanges(ctx context.Context) error {
	if !d.net.IsOnline() {
		return nil
	}
	if !d.inProgress.CompareAndSwap(false, true) {
		return nil
	}
	defer d.inProgress.Store(false)

	start := time.Now()

	entries, err := d.queue.Pending(ctx, d.opts.BatchSize)
	if err != nil {
		return err
	}

	synced, failed := 0, 0
	for _, e := range entries {
		// sequential on purpose: preserves per-entity mutation order
		if err := d.api.Submit(ctx, e.EntityType, e.Action, e.Payload); err != nil {
			failed++
			status, ferr := d.queue.RecordFailure(ctx, e.ID, d.opts.MaxAttempts)
			if ferr != nil {
				return ferr
			}
			metrics.OutboxEntriesTotal.WithLabelValues("failed", e.EntityType.String()).Inc()
			logger.Log.Warn("sync entry failed",
				zap.String("entry", e.ID),
				zap.String("entity_type", e.EntityType.String()),
				zap.String("action", e.Action.String()),
				zap.String("status", status.String()),
				zap.Int("attempts", e.Attempts+1),
				zap.Bool("permanent", remote.IsPermanent(err)),
				zap.Error(err))
			continue
		}

		if err := d.queue.MarkSynced(ctx, e.ID); err != nil {
			return err
		}
		synced++
		metrics.OutboxEntriesTotal.WithLabelValues("synced", e.EntityType.String()).Inc()
	}

	d.mu.Lock()
	d.lastSync = time.Now()
	d.mu.Unlock()

	metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
	if n, err := d.queue.PendingCount(ctx); err == nil {
		metrics.OutboxPending.Set(float64(n))
	}

	if len(entries) > 0 {
		logger.Log.Info("sync pass complete",
			zap.Int("synced", synced),
			zap.Int("failed", failed),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

// DownloadFromServer performs the explicit bulk pull used on first run or a
// manual refresh. Fails fast when offline; remote errors propagate since
// this is an observable user action. Conflicts resolve last-writer-wins by
// the record's updatedAt.
func (d *Driver) DownloadFromServer(ctx context.Context) error {
	if !d.net.IsOnline() {
		return ErrOffline
	}

	envelopes, err := d.api.PullAll(ctx, model.AllEntityTypes())
	if err != nil {
		return err
	}

	applied := 0
	for _, env := range envelopes {
		if !env.EntityType.Valid() || env.Record == nil {
			logger.Log.Warn("skipping malformed pulled record",
				zap.String("entity_type", env.EntityType.String()),
				zap.String("entity_id", env.EntityID))
			continue
		}

		collection := env.EntityType.Collection()
		local, err := d.local.FindOne(ctx, nil, collection, store.ByID(env.Record.ID()))
		if err != nil {
			return err
		}
		if local != nil && local.UpdatedAt().After(env.Record.UpdatedAt()) {
			continue // local copy is newer, keep it
		}
		if err := d.local.Put(ctx, nil, collection, env.Record); err != nil {
			return err
		}
		applied++
	}

	logger.Log.Info("bulk pull complete",
		zap.Int("received", len(envelopes)),
		zap.Int("applied", applied))
	return nil
}

// Run drives the periodic sweep and reacts to connectivity transitions until
// ctx is cancelled. The offline->online flip triggers an immediate drain.
func (d *Driver) Run(ctx context.Context) {
	events := d.net.Subscribe()

	tick := time.NewTicker(d.opts.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !ev.Online {
				continue // in-flight work is not aborted, new attempts are suppressed
			}
			if err := d.SyncPendingChanges(ctx); err != nil {
				logger.Log.Error("sync after reconnect failed", zap.Error(err))
			}
		case <-tick.C:
			if err := d.SyncPendingChanges(ctx); err != nil {
				logger.Log.Error("periodic sync failed", zap.Error(err))
				continue
			}
			if n, err := d.queue.PruneSynced(ctx, d.opts.Retention); err == nil && n > 0 {
				logger.Log.Info("pruned synced outbox entries", zap.Int("count", n))
			}
		}
	}
}
