package cmd

import (
	"context"
	"mirrord/internal/bulk"
	"mirrord/internal/daemon"
	"mirrord/internal/logger"
	"mirrord/internal/orchestrator"
	"mirrord/internal/repository"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a bulk catch-up pass, then mirror new files as they appear",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	if err := cfg.ValidateRoots(); err != nil {
		return err
	}

	runner := bulk.NewRunner(cfg.BulkTool, cfg.BulkArgs)
	orch, err := orchestrator.New(cfg, runner, repository.NewHistoryRepository())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- orch.Run(ctx)
	}()

	srv := daemon.NewServer(orch, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("mirrord started",
		zap.String("source", cfg.Source),
		zap.String("destination", cfg.Destination),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	case err := <-errCh:
		// Watcher registration failure surfaces here.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
		return err
	}

	cancel()
	if err := <-errCh; err != nil {
		logger.Log.Warn("orchestrator exited with error",
			zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
