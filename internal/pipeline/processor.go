package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lifelog/internal/entry"
	"lifelog/internal/logging"
	"lifelog/internal/services"
	"lifelog/internal/storage"
	"lifelog/internal/transcribe"
)

// ObjectStore is the slice of the storage gateway the processor needs.
type ObjectStore interface {
	FetchToLocal(ctx context.Context, key, destDir string) (string, error)
	PutFile(ctx context.Context, key, path, contentType string) error
}

// Toolkit is the slice of the media toolkit the processor needs.
type Toolkit interface {
	Thumbnail(ctx context.Context, source, dest string) error
	Duration(ctx context.Context, source string) (float64, error)
	ExtractAudio(ctx context.Context, source, dest string) error
}

// Transcriber converts extracted audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, outputDir string) (transcribe.Result, error)
}

// Enricher derives text artifacts from a transcript.
type Enricher interface {
	Summarize(text string) string
	AutoTag(text string) []string
	AnalyzeSentiment(text string) float64
}

// Processor runs the enrichment stages for one entry. Every dependency is
// injected; the processor owns no goroutines and no global state.
type Processor struct {
	store       *entry.Store
	objects     ObjectStore
	toolkit     Toolkit
	transcriber Transcriber
	enricher    Enricher
	workDir     string
	logger      *slog.Logger
	metrics     *StageMetrics
}

// NewProcessor wires an entry processor.
func NewProcessor(
	store *entry.Store,
	objects ObjectStore,
	toolkit Toolkit,
	transcriber Transcriber,
	enricher Enricher,
	workDir string,
	logger *slog.Logger,
	metrics *StageMetrics,
) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = NewStageMetrics()
	}
	return &Processor{
		store:       store,
		objects:     objects,
		toolkit:     toolkit,
		transcriber: transcriber,
		enricher:    enricher,
		workDir:     workDir,
		logger:      logger,
		metrics:     metrics,
	}
}

// Metrics exposes the failure counters.
func (p *Processor) Metrics() *StageMetrics {
	return p.metrics
}

// Process runs every stage for a claimed entry. It never returns an error:
// each stage failure is logged, counted, and absorbed, and the entry is
// marked done with whatever was derived. Temp files are removed on every
// path, after the finishing write.
func (p *Processor) Process(ctx context.Context, entryID int64, storageKey string) {
	ctx = services.WithEntryID(ctx, entryID)
	logger := logging.WithContext(ctx, p.logger)

	var derived entry.Derived

	tmpDir, err := os.MkdirTemp(p.workDir, fmt.Sprintf("entry-%d-", entryID))
	if err != nil {
		p.fail(logger, "workspace", err)
		p.finish(ctx, logger, entryID, derived)
		return
	}
	// LIFO: the finishing write happens before the workspace is removed.
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			logger.Warn("temp cleanup failed", logging.Error(rmErr), logging.String("dir", tmpDir))
		}
	}()
	defer func() {
		p.finish(ctx, logger, entryID, derived)
	}()

	// Download is the only stage whose failure aborts the run; nothing else
	// can happen without the source file.
	source, err := p.objects.FetchToLocal(ctx, storageKey, tmpDir)
	if err != nil {
		p.fail(logger, "download", err)
		return
	}

	if key, err := p.makeThumbnail(ctx, storageKey, source, tmpDir); err != nil {
		p.fail(logger, "thumbnail", err)
	} else {
		derived.ThumbnailKey = key
	}

	if duration, err := p.toolkit.Duration(ctx, source); err != nil {
		p.fail(logger, "duration", err)
	} else {
		if duration < 0 {
			duration = 0
		}
		derived.DurationSeconds = &duration
	}

	audioPath := filepath.Join(tmpDir, "audio.wav")
	if err := p.toolkit.ExtractAudio(ctx, source, audioPath); err != nil {
		p.fail(logger, "extract_audio", err)
		return
	}

	result, err := p.transcriber.Transcribe(ctx, audioPath, tmpDir)
	if err != nil {
		p.fail(logger, "transcribe", err)
		return
	}
	derived.Transcript = result.Text

	// The text stages are pure and only meaningful with actual speech.
	if result.Text != "" {
		derived.Summary = p.enricher.Summarize(result.Text)
		derived.AutoTags = p.enricher.AutoTag(result.Text)
		score := p.enricher.AnalyzeSentiment(result.Text)
		derived.SentimentScore = &score
	}
}

func (p *Processor) makeThumbnail(ctx context.Context, storageKey, source, tmpDir string) (string, error) {
	dest := filepath.Join(tmpDir, "thumbnail.jpg")
	if err := p.toolkit.Thumbnail(ctx, source, dest); err != nil {
		return "", err
	}
	key := storage.ThumbnailKeyFor(storageKey)
	if err := p.objects.PutFile(ctx, key, dest, "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

// finish persists whatever was derived and marks the entry done. It runs on
// every path, including cancellation, so the write uses a context detached
// from the caller's.
func (p *Processor) finish(ctx context.Context, logger *slog.Logger, entryID int64, derived entry.Derived) {
	matched, err := p.store.FinishProcessing(context.WithoutCancel(ctx), entryID, derived)
	if err != nil {
		p.fail(logger, "finish", err)
		return
	}
	if !matched {
		logger.Info("entry deleted during processing, discarding results")
		return
	}
	logger.Info("entry processing complete",
		logging.Bool("has_thumbnail", derived.ThumbnailKey != ""),
		logging.Bool("has_transcript", derived.Transcript != ""),
		logging.Int("auto_tags", len(derived.AutoTags)),
	)
}

func (p *Processor) fail(logger *slog.Logger, stage string, err error) {
	kind := services.Kind(err)
	p.metrics.Record(stage, kind)
	logger.Warn("stage failed",
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldErrorKind, kind),
		logging.Error(err),
		logging.String(logging.FieldEventType, "stage_failure"),
	)
}
