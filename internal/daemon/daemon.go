// Package daemon hosts the long-running lifelog process: the enrichment
// worker, the HTTP API, and the single-instance lock that keeps two
// daemons from sharing one database.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lifelog/internal/api"
	"lifelog/internal/config"
	"lifelog/internal/entry"
	"lifelog/internal/logging"
	"lifelog/internal/pipeline"
)

// Daemon coordinates the worker, API server, and store lifecycle.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *entry.Store
	entries *api.EntryService
	worker  *pipeline.Worker
	metrics *pipeline.StageMetrics

	api  *apiServer
	lock *flock.Flock

	mu      sync.Mutex
	cancel  context.CancelFunc
	running atomic.Bool
}

// New assembles a daemon from already-constructed components. Nothing
// starts until Start is called.
func New(cfg *config.Config, store *entry.Store, entries *api.EntryService, worker *pipeline.Worker, metrics *pipeline.StageMetrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("daemon: store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:     cfg,
		logger:  logger.With(logging.FieldComponent, "daemon"),
		store:   store,
		entries: entries,
		worker:  worker,
		metrics: metrics,
		lock:    flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the instance lock, requeues entries orphaned by a
// previous crash, and brings up the worker and API listener.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return fmt.Errorf("daemon already running")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another daemon instance holds %s", d.cfg.LockPath())
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	reclaimed, err := d.store.ResetStuckRunning(runCtx)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck entries: %w", err)
	}
	if reclaimed > 0 {
		d.logger.Info("requeued entries left running by a previous run", "count", reclaimed)
	}

	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker: %w", err)
	}

	// http.Server cannot serve again after Shutdown, so build a fresh one
	// on every Start.
	d.api = newAPIServer(d.cfg.API.Bind, d.cfg.API.Token, d.entries, d, d.logger)
	if err := d.api.start(runCtx); err != nil {
		d.worker.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started", "bind", d.api.addr(), "database", d.cfg.DatabasePath())
	return nil
}

// Stop shuts down the API server and worker and releases the lock.
// Safe to call more than once.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.worker.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether Start has succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the bound API address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status summarizes entry counts and stage failures for the status
// endpoint and CLI.
func (d *Daemon) Status(ctx context.Context) (api.StatusView, error) {
	summary, err := d.store.HealthSummary(ctx)
	if err != nil {
		return api.StatusView{}, err
	}
	var failures map[string]map[string]uint64
	if d.metrics != nil {
		failures = d.metrics.Snapshot()
	}
	return api.StatusFromSummary(d.running.Load(), summary, failures), nil
}
