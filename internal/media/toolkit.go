package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"lifelog/internal/config"
	"lifelog/internal/media/ffprobe"
	"lifelog/internal/services"
)

// ToolkitError carries the exit code and captured stderr of a failed ffmpeg
// or ffprobe invocation.
type ToolkitError struct {
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolkitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolkitError) Unwrap() error {
	return e.Err
}

// Quality selects a compression preset.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

func (q Quality) crf() string {
	switch q {
	case QualityLow:
		return "28"
	case QualityHigh:
		return "18"
	default:
		return "23"
	}
}

// Toolkit wraps ffmpeg and ffprobe for the handful of operations the
// enrichment pipeline needs.
type Toolkit struct {
	ffmpegBinary  string
	ffprobeBinary string
	thumbnailTS   float64
	thumbnailW    int
	timeout       time.Duration

	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewToolkit builds a toolkit from configuration.
func NewToolkit(cfg config.Toolkit) *Toolkit {
	ffmpegBinary := strings.TrimSpace(cfg.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	ffprobeBinary := strings.TrimSpace(cfg.FFprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Toolkit{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		thumbnailTS:   cfg.ThumbnailTimestamp,
		thumbnailW:    cfg.ThumbnailWidth,
		timeout:       time.Duration(cfg.CommandTimeout) * time.Second,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Toolkit) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.commandRunner = runner
}

// Thumbnail captures a single frame at the configured timestamp, scaled to
// the configured width with the aspect ratio preserved.
func (t *Toolkit) Thumbnail(ctx context.Context, source, dest string) error {
	args := []string{
		"-ss", formatSeconds(t.thumbnailTS),
		"-i", source,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", t.thumbnailW),
		"-y", dest,
	}
	return t.run(ctx, t.ffmpegBinary, args...)
}

// Duration returns the container duration in seconds. Malformed or negative
// probe output reads as 0 rather than an error.
func (t *Toolkit) Duration(ctx context.Context, source string) (float64, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, t.ffprobeBinary, source)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "toolkit", "duration", source, err)
	}
	return result.DurationSeconds(), nil
}

// HasAudio reports whether the container carries at least one audio stream.
func (t *Toolkit) HasAudio(ctx context.Context, source string) (bool, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, t.ffprobeBinary, source)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "toolkit", "probe", source, err)
	}
	return result.AudioStreamCount() > 0, nil
}

// ExtractAudio writes the audio track as 16kHz mono PCM WAV, the input format
// the transcription engine expects.
func (t *Toolkit) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-i", source,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", dest,
	}
	return t.run(ctx, t.ffmpegBinary, args...)
}

// Compress re-encodes the video with the preset mapped from the quality
// level. Audio is carried over as AAC.
func (t *Toolkit) Compress(ctx context.Context, source, dest string, quality Quality) error {
	args := []string{
		"-i", source,
		"-c:v", "libx264",
		"-crf", quality.crf(),
		"-preset", "medium",
		"-c:a", "aac",
		"-y", dest,
	}
	return t.run(ctx, t.ffmpegBinary, args...)
}

// PreviewClip cuts a short segment without re-encoding.
func (t *Toolkit) PreviewClip(ctx context.Context, source, dest string, start, duration float64) error {
	args := []string{
		"-ss", formatSeconds(start),
		"-i", source,
		"-t", formatSeconds(duration),
		"-c", "copy",
		"-y", dest,
	}
	return t.run(ctx, t.ffmpegBinary, args...)
}

func (t *Toolkit) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *Toolkit) run(ctx context.Context, name string, args ...string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if t.commandRunner != nil {
		if err := t.commandRunner(ctx, name, args...); err != nil {
			return wrapCommandError(name, err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		toolErr := &ToolkitError{
			Binary:   name,
			ExitCode: exitCode(err),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		return services.Wrap(services.ErrExternalTool, "toolkit", name, "", toolErr)
	}
	return nil
}

func wrapCommandError(name string, err error) error {
	var toolErr *ToolkitError
	if errors.As(err, &toolErr) {
		return services.Wrap(services.ErrExternalTool, "toolkit", name, "", err)
	}
	return services.Wrap(services.ErrExternalTool, "toolkit", name, "", &ToolkitError{
		Binary:   name,
		ExitCode: exitCode(err),
		Err:      err,
	})
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}
