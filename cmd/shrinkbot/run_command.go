package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"shrinkbot/internal/bot"
	"shrinkbot/internal/config"
	"shrinkbot/internal/encode"
	"shrinkbot/internal/logging"
	"shrinkbot/internal/notify"
	"shrinkbot/internal/pipeline"
	"shrinkbot/internal/preflight"
	"shrinkbot/internal/telegram"
	"shrinkbot/internal/workspace"
)

func newRunCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and handle commands until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runBot(cmd.Context(), cfg)
		},
	}
}

func runBot(ctx context.Context, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Two pollers on one token fight over getUpdates, so a second instance
	// must not start.
	lockPath := filepath.Join(cfg.Paths.StagingDir, "shrinkbot.lock")
	lock := flock.New(lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another shrinkbot instance already holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	if err := runPreflight(signalCtx, cfg, logger); err != nil {
		return err
	}
	sweepStaleWorkspaces(signalCtx, cfg, logger)

	client, err := telegram.New(cfg, logger)
	if err != nil {
		return err
	}

	worker := encode.NewWorker(encode.NewRunner(logger), logger)
	if err := worker.Start(signalCtx); err != nil {
		return err
	}
	defer worker.Stop()

	notifier := notify.NewService(signalCtx, client, logger)
	runner := pipeline.NewRunner(client, notifier, worker, cfg.Paths.StagingDir, logger)
	router := bot.NewRouter(client, notifier, runner, logger)

	logger.Info("shrinkbot started",
		logging.String("bot", client.BotName()),
		logging.String("staging_dir", cfg.Paths.StagingDir),
	)

	// Stopping the client closes the update stream, which lets the router
	// drain in-flight handlers and return.
	stopped := context.AfterFunc(signalCtx, client.Stop)
	defer stopped()

	router.Run(signalCtx, client.Updates(cfg.Workflow.UpdateTimeout))
	notifier.Wait()

	logger.Info("shrinkbot stopped")
	return signalCtx.Err()
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg, "")
	for _, result := range results {
		switch {
		case !result.Passed:
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		case result.Warning:
			logger.Warn("preflight check passed with warning",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		default:
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
	}
	if failed := preflight.RequiredFailures(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, result := range failed {
			names = append(names, result.Name)
		}
		return fmt.Errorf("preflight failed: %s (run `shrinkbot doctor` for details)", strings.Join(names, ", "))
	}
	return nil
}

func sweepStaleWorkspaces(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	maxAge := time.Duration(cfg.Workflow.StaleWorkspaceHours) * time.Hour
	result := workspace.CleanStale(ctx, cfg.Paths.StagingDir, maxAge, logger)
	if len(result.Removed) > 0 {
		logger.Info("swept stale workspaces", logging.Int("removed", len(result.Removed)))
	}
}
