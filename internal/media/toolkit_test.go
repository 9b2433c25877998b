package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lifelog/internal/config"
	"lifelog/internal/services"
)

func newTestToolkit() (*Toolkit, *[][]string) {
	toolkit := NewToolkit(config.Toolkit{
		FFmpegBinary:       "ffmpeg",
		FFprobeBinary:      "ffprobe",
		ThumbnailTimestamp: 1.0,
		ThumbnailWidth:     480,
		CommandTimeout:     30,
	})
	var calls [][]string
	toolkit.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	})
	return toolkit, &calls
}

func TestThumbnailArgs(t *testing.T) {
	toolkit, calls := newTestToolkit()

	if err := toolkit.Thumbnail(context.Background(), "/tmp/in.mp4", "/tmp/out.jpg"); err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(*calls))
	}
	cmd := strings.Join((*calls)[0], " ")
	for _, want := range []string{"ffmpeg", "-ss 1.000", "-frames:v 1", "scale=480:-1", "/tmp/out.jpg"} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("expected %q in command %q", want, cmd)
		}
	}
}

func TestExtractAudioArgs(t *testing.T) {
	toolkit, calls := newTestToolkit()

	if err := toolkit.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/audio.wav"); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	cmd := strings.Join((*calls)[0], " ")
	for _, want := range []string{"-vn", "pcm_s16le", "-ar 16000", "-ac 1", "/tmp/audio.wav"} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("expected %q in command %q", want, cmd)
		}
	}
}

func TestCompressQualityMapping(t *testing.T) {
	cases := []struct {
		quality Quality
		crf     string
	}{
		{QualityLow, "-crf 28"},
		{QualityMedium, "-crf 23"},
		{QualityHigh, "-crf 18"},
		{Quality("bogus"), "-crf 23"},
	}
	for _, tc := range cases {
		toolkit, calls := newTestToolkit()
		if err := toolkit.Compress(context.Background(), "in.mp4", "out.mp4", tc.quality); err != nil {
			t.Fatalf("Compress(%s) failed: %v", tc.quality, err)
		}
		cmd := strings.Join((*calls)[0], " ")
		if !strings.Contains(cmd, tc.crf) {
			t.Fatalf("quality %s: expected %q in %q", tc.quality, tc.crf, cmd)
		}
	}
}

func TestPreviewClipArgs(t *testing.T) {
	toolkit, calls := newTestToolkit()

	if err := toolkit.PreviewClip(context.Background(), "in.mp4", "out.mp4", 2.5, 10); err != nil {
		t.Fatalf("PreviewClip failed: %v", err)
	}
	cmd := strings.Join((*calls)[0], " ")
	for _, want := range []string{"-ss 2.500", "-t 10.000", "-c copy"} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("expected %q in command %q", want, cmd)
		}
	}
}

func TestRunnerFailureIsExternalToolError(t *testing.T) {
	toolkit, _ := newTestToolkit()
	toolkit.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("boom")
	})

	err := toolkit.Thumbnail(context.Background(), "in.mp4", "out.jpg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool classification, got %v", err)
	}
	var toolErr *ToolkitError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolkitError in chain, got %v", err)
	}
}

func TestToolkitErrorMessage(t *testing.T) {
	err := &ToolkitError{Binary: "ffmpeg", ExitCode: 1, Stderr: "no such file"}
	if got := err.Error(); !strings.Contains(got, "code 1") || !strings.Contains(got, "no such file") {
		t.Fatalf("unexpected message: %s", got)
	}
}
