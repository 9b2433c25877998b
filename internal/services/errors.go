package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks non-zero exits from ffmpeg/ffprobe invocations.
	ErrExternalTool = errors.New("external tool error")
	// ErrEngineUnavailable marks transcription or enrichment engines that could not run.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrNotFound marks missing objects or rows.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks caller mistakes that retrying cannot fix.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks network/storage hiccups.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for an error, used to key the
// per-stage failure counters and to pick log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrEngineUnavailable):
		return "engine_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
