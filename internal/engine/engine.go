// Package engine wires the sync core together with explicit construction and
// lifecycle instead of import-time singletons: local store, outbox,
// connectivity monitor, remote client, sync driver, and the domain services
// on top of them.
package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/openlearn/edusync/internal/config"
	"github.com/openlearn/edusync/internal/connectivity"
	"github.com/openlearn/edusync/internal/content"
	"github.com/openlearn/edusync/internal/db"
	"github.com/openlearn/edusync/internal/logger"
	"github.com/openlearn/edusync/internal/outbox"
	"github.com/openlearn/edusync/internal/remote"
	"github.com/openlearn/edusync/internal/service"
	"github.com/openlearn/edusync/internal/service/career"
	"github.com/openlearn/edusync/internal/service/community"
	"github.com/openlearn/edusync/internal/service/learning"
	"github.com/openlearn/edusync/internal/service/timetable"
	"github.com/openlearn/edusync/internal/store"
	"github.com/openlearn/edusync/internal/syncer"
)

// Engine owns the offline-first core. Construct with New, call Initialize
// once before using any domain service, Start to run the background loops,
// and Close on shutdown.
type Engine struct {
	cfg config.Config

	mu          sync.Mutex
	initialized bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	store   *store.Store
	queue   outbox.Queue
	monitor *connectivity.Monitor
	driver  *syncer.Driver
	content *content.Manager

	learning  *learning.Service
	timetable *timetable.Service
	community *community.Service
	career    *career.Service
}

func New(cfg config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Initialize opens the local store and builds the component graph.
// Idempotent: repeated calls after a successful one are no-ops. A store
// failure here is fatal; nothing can function without it.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	dbx, err := db.NewSQLiteConnection(e.cfg.SQLite.Path, db.SQLiteOpts{
		BusyTimeout: e.cfg.SQLite.BusyTimeout,
		PingTimeout: e.cfg.SQLite.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}

	e.store = store.New(dbx)
	if err := e.store.Migrate(ctx); err != nil {
		_ = dbx.Close()
		return err
	}

	e.queue = outbox.NewQueue(dbx)

	prober := connectivity.NewHTTPProber(e.cfg.Probe.URL, e.cfg.Probe.Timeout)
	e.monitor = connectivity.NewMonitor(prober, e.cfg.Probe.Interval)

	api := remote.NewHTTPClient(e.cfg.Remote.BaseURL, remote.HTTPClientOpts{
		Timeout:       e.cfg.Remote.Timeout,
		APIKey:        e.cfg.Remote.APIKey,
		FailThreshold: e.cfg.Remote.Breaker.FailThreshold,
		OpenFor:       e.cfg.Remote.Breaker.OpenFor,
	})

	e.driver = syncer.New(e.queue, api, e.monitor, e.store, syncer.Options{
		Interval:    e.cfg.Sync.Interval,
		MaxAttempts: e.cfg.Sync.MaxAttempts,
		BatchSize:   e.cfg.Sync.BatchSize,
		Retention:   e.cfg.Sync.Retention,
	})

	e.content = content.NewManager(dbx, e.cfg.Content.Dir, content.Opts{
		MaxBytes: e.cfg.Content.MaxBytes,
	})

	w := service.NewWriter(e.store, e.queue)
	e.learning = learning.New(w)
	e.timetable = timetable.New(w)
	e.community = community.New(w)
	e.career = career.New(w)

	e.initialized = true
	logger.Log.Info("engine initialized", zap.String("store", e.cfg.SQLite.Path))
	return nil
}

// Start launches the connectivity prober and the sync loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return fmt.Errorf("engine not initialized")
	}
	if e.cancel != nil {
		return nil // already running
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.monitor.Run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.driver.Run(runCtx)
	}()

	return nil
}

// Close stops the background loops and closes the store. Safe to call
// multiple times.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.wg.Wait()

	if !e.initialized {
		return nil
	}
	e.initialized = false

	logger.Log.Info("engine closed")
	return e.store.Close()
}

func (e *Engine) Store() *store.Store { return e.store }

func (e *Engine) Queue() outbox.Queue { return e.queue }

func (e *Engine) Monitor() *connectivity.Monitor { return e.monitor }

func (e *Engine) Driver() *syncer.Driver { return e.driver }

func (e *Engine) Content() *content.Manager { return e.content }

func (e *Engine) Learning() *learning.Service { return e.learning }

func (e *Engine) Timetable() *timetable.Service { return e.timetable }

func (e *Engine) Community() *community.Service { return e.community }

func (e *Engine) Career() *career.Service { return e.career }
