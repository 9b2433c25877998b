package transcribe

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"lifelog/internal/config"
	"lifelog/internal/services"
)

// Result carries a finished transcription.
type Result struct {
	Text     string
	Language string
	Segments []Segment
}

// Segment is one timed slice of speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperOutput struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Service transcribes extracted audio with the whisper CLI.
type Service struct {
	binary   string
	model    string
	language string
	timeout  time.Duration

	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService builds a transcription service from configuration.
func NewService(cfg config.Transcription) *Service {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "whisper"
	}
	return &Service{
		binary:   binary,
		model:    cfg.Model,
		language: cfg.Language,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Language returns the configured language hint.
func (s *Service) Language() string {
	return s.language
}

// Transcribe runs whisper against an extracted audio file and parses the JSON
// it writes next to the audio. Silence is a valid answer: an empty text field
// comes back as an empty Result with no error. Any failure to run the binary
// or read its output marks the engine unavailable.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputDir string) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "run", "audio path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "transcribe", "run", "ensure output dir", err)
	}

	args := s.buildArgs(audioPath, outputDir)
	if err := s.run(ctx, s.binary, args...); err != nil {
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "transcribe", "run", audioPath, err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")

	payload, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "transcribe", "read-output", jsonPath, err)
	}

	var output whisperOutput
	if err := json.Unmarshal(payload, &output); err != nil {
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "transcribe", "parse-output", jsonPath, err)
	}

	return Result{
		Text:     strings.TrimSpace(output.Text),
		Language: output.Language,
		Segments: output.Segments,
	}, nil
}

// DetectLanguage is diagnostic only. It asks whisper to identify the spoken
// language but never fails the caller: any problem just echoes the configured
// hint back.
func (s *Service) DetectLanguage(ctx context.Context, audioPath string) string {
	dir, err := os.MkdirTemp("", "lifelog-lang-*")
	if err != nil {
		return s.language
	}
	defer os.RemoveAll(dir)

	result, err := s.Transcribe(ctx, audioPath, dir)
	if err != nil || result.Language == "" {
		return s.language
	}
	return result.Language
}

func (s *Service) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", s.model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if s.language != "" {
		args = append(args, "--language", s.language)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return &runError{err: err, output: trimmed}
		}
		return err
	}
	return nil
}

type runError struct {
	err    error
	output string
}

func (e *runError) Error() string { return e.err.Error() + ": " + e.output }
func (e *runError) Unwrap() error { return e.err }
