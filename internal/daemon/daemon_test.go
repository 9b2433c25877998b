package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"lifelog/internal/api"
	"lifelog/internal/config"
	"lifelog/internal/entry"
	"lifelog/internal/logging"
	"lifelog/internal/pipeline"
	"lifelog/internal/testsupport"
)

type noopProcessor struct{}

func (noopProcessor) Process(context.Context, int64, string) {}

func newTestDaemon(t *testing.T, cfg *config.Config, store *entry.Store) *Daemon {
	t.Helper()
	logger := logging.NewNop()
	blobs := newBlobStub()
	worker := pipeline.NewWorker(cfg, store, noopProcessor{}, logger)
	metrics := pipeline.NewStageMetrics()
	entries := api.NewEntryService(store, blobs, worker, logger)
	d, err := New(cfg, store, entries, worker, metrics, logger)
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	return d
}

func TestDaemonStartServesStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	if d.Addr() == "" {
		t.Fatal("daemon should expose a bound address")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status api.StatusView
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("status should report running")
	}
}

func TestDaemonRejectsSecondStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := newTestDaemon(t, cfg, store)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}
	defer first.Stop()

	cfg2 := *cfg
	cfg2.API.Bind = "127.0.0.1:0"
	second := newTestDaemon(t, &cfg2, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	d.Stop()
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should not report running after Stop")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop should work: %v", err)
	}
	d.Stop()
}

func TestDaemonStartRequeuesStuckEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ent, err := store.Create(ctx, entry.NewEntry{OwnerID: 1, StorageKey: "entries/1/stuck.mp4", MimeType: "video/mp4"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	claimed, err := store.ClaimForProcessing(ctx, ent.ID)
	if err != nil || !claimed {
		t.Fatalf("claim entry: claimed=%v err=%v", claimed, err)
	}

	// A crashed predecessor left the entry in running. A fresh daemon must
	// requeue it so the worker can pick it up again.
	processed := make(chan int64, 1)
	logger := logging.NewNop()
	worker := pipeline.NewWorker(cfg, store, signalProcessor{ch: processed}, logger)
	entries := api.NewEntryService(store, newBlobStub(), worker, logger)
	d, err := New(cfg, store, entries, worker, pipeline.NewStageMetrics(), logger)
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	select {
	case id := <-processed:
		if id != ent.ID {
			t.Fatalf("worker processed entry %d, want %d", id, ent.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stuck entry was never requeued and processed")
	}
}

type signalProcessor struct {
	ch chan int64
}

func (p signalProcessor) Process(_ context.Context, entryID int64, _ string) {
	select {
	case p.ch <- entryID:
	default:
	}
}
