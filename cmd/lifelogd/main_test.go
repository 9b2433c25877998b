package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lifelog/internal/api"
	"lifelog/internal/config"
	"lifelog/internal/daemon"
	"lifelog/internal/logging"
	"lifelog/internal/pipeline"
	"lifelog/internal/testsupport"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err = runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestConfigShowCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "data_dir")
	requireContains(t, out, cfg.DataDir)
}

func TestConfigPathCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, _, err := runCLI(t, "", "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, "config.toml")
}

func TestEntriesReprocessRejectsBadID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, path, "entries", "reprocess", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid entry id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestStatusCommandAgainstLiveDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	worker := pipeline.NewWorker(cfg, store, cliNoopProcessor{}, logger)
	entries := api.NewEntryService(store, nil, worker, logger)
	d, err := daemon.New(cfg, store, entries, worker, pipeline.NewStageMetrics(), logger)
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	clientCfg := *cfg
	clientCfg.API.Bind = d.Addr()
	path := writeTestConfig(t, &clientCfg)

	out, _, err := runCLI(t, path, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon: running")

	out, _, err = runCLI(t, path, "--json", "status")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"running": true`)
}

type cliNoopProcessor struct{}

func (cliNoopProcessor) Process(context.Context, int64, string) {}
