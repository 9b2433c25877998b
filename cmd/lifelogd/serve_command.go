package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lifelog/internal/api"
	"lifelog/internal/daemon"
	"lifelog/internal/deps"
	"lifelog/internal/enrich"
	"lifelog/internal/entry"
	"lifelog/internal/logging"
	"lifelog/internal/media"
	"lifelog/internal/pipeline"
	"lifelog/internal/storage"
	"lifelog/internal/transcribe"
)

func newServeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lifelog daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if status.Available {
					continue
				}
				if status.Optional {
					logger.Warn("optional dependency missing", "name", status.Name, "detail", status.Detail)
					continue
				}
				logger.Error("required dependency missing", "name", status.Name, "detail", status.Detail)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := entry.Open(cfg)
			if err != nil {
				return fmt.Errorf("open entry store: %w", err)
			}

			gateway, err := storage.NewGateway(ctx, cfg, logger)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("connect object storage: %w", err)
			}

			metrics := pipeline.NewStageMetrics()
			processor := pipeline.NewProcessor(
				store,
				gateway,
				media.NewToolkit(cfg.Toolkit),
				transcribe.NewService(cfg.Transcription),
				enrich.NewEngine(),
				cfg.WorkDir,
				logger,
				metrics,
			)
			worker := pipeline.NewWorker(cfg, store, processor, logger)
			entries := api.NewEntryService(store, gateway, worker, logger)

			d, err := daemon.New(cfg, store, entries, worker, metrics, logger)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("lifelogd shutting down")
			return nil
		},
	}
}
