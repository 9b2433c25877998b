package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lifelog/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "thumbnail", "run ffmpeg", "frame extraction failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected wrapped error to match ErrExternalTool")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve the cause")
	}
	if !strings.Contains(err.Error(), "thumbnail: run ffmpeg") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "download", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.ErrExternalTool, "external_tool"},
		{fmt.Errorf("wrapped: %w", services.ErrEngineUnavailable), "engine_unavailable"},
		{services.ErrNotFound, "not_found"},
		{services.ErrValidation, "validation"},
		{errors.New("anything else"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
