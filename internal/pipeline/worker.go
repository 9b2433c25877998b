package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lifelog/internal/config"
	"lifelog/internal/entry"
	"lifelog/internal/logging"
)

// EntryProcessor runs the enrichment stages for one claimed entry.
type EntryProcessor interface {
	Process(ctx context.Context, entryID int64, storageKey string)
}

// Worker drives pending entries through the processor, one at a time. It
// claims work with the store's compare-and-set, keeps a heartbeat alive while
// processing, and reclaims stale claims left by dead workers each cycle.
type Worker struct {
	store     *entry.Store
	processor EntryProcessor
	logger    *slog.Logger

	pollInterval      time.Duration
	errRetryInterval  time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	wake chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker constructs a worker from configuration.
func NewWorker(cfg *config.Config, store *entry.Store, processor EntryProcessor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		store:             store,
		processor:         processor,
		logger:            logger.With(logging.String(logging.FieldComponent, "worker")),
		pollInterval:      time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errRetryInterval:  time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		heartbeatTimeout:  time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
		wake:              make(chan struct{}, 1),
	}
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight entry.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Enqueue pokes the worker so a freshly inserted pending entry is picked up
// without waiting out the poll interval. Fire and forget: the pending row is
// the real queue, the channel is only a hint.
func (w *Worker) Enqueue(entryID int64, storageKey string) {
	_ = entryID
	_ = storageKey
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.reclaimStale(ctx)

		next, err := w.store.NextPending(ctx)
		if err != nil {
			w.logger.Warn("poll for pending entries failed", logging.Error(err))
			if !w.sleep(ctx, w.errRetryInterval) {
				return
			}
			continue
		}
		if next == nil {
			if !w.waitForWork(ctx) {
				return
			}
			continue
		}

		claimed, err := w.store.ClaimForProcessing(ctx, next.ID)
		if err != nil {
			w.logger.Warn("claim failed", logging.Int64(logging.FieldEntryID, next.ID), logging.Error(err))
			if !w.sleep(ctx, w.errRetryInterval) {
				return
			}
			continue
		}
		if !claimed {
			// Someone else won the row; look for more work immediately.
			continue
		}

		w.processEntry(ctx, next)
	}
}

func (w *Worker) processEntry(ctx context.Context, ent *entry.Entry) {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go w.heartbeatLoop(hbCtx, &hbWG, ent.ID)

	w.logger.Info("processing entry", logging.Int64(logging.FieldEntryID, ent.ID))
	w.processor.Process(ctx, ent.ID, ent.StorageKey)

	stopHeartbeat()
	hbWG.Wait()
}

func (w *Worker) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, entryID int64) {
	defer wg.Done()
	if w.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(context.WithoutCancel(ctx), entryID); err != nil {
				w.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldEntryID, entryID),
					logging.Error(err),
				)
			}
		}
	}
}

func (w *Worker) reclaimStale(ctx context.Context) {
	if w.heartbeatTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-w.heartbeatTimeout)
	reclaimed, err := w.store.ReclaimStaleRunning(ctx, cutoff)
	if err != nil {
		w.logger.Warn("reclaim stale running failed, stuck entries may remain", logging.Error(err))
		return
	}
	for _, id := range reclaimed {
		w.logger.Info("reclaimed stale entry",
			logging.Int64(logging.FieldEntryID, id),
			logging.String(logging.FieldEventType, "heartbeat_reclaim"),
		)
	}
}

// waitForWork blocks until the poll interval elapses, an enqueue hint
// arrives, or shutdown. It reports false on shutdown.
func (w *Worker) waitForWork(ctx context.Context) bool {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
