package cmd

import (
	"context"
	"fmt"
	"mirrord/internal/bulk"
	"mirrord/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source] [destination]",
	Short: "Run the bulk catch-up pass once and exit",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		src, dst := cfg.Source, cfg.Destination
		if len(args) == 2 {
			src, dst = args[0], args[1]
		}
		if src == "" || dst == "" {
			return fmt.Errorf("source and destination are required")
		}

		logger.Log.Info("starting bulk copy",
			zap.String("src", src),
			zap.String("dst", dst))

		runner := bulk.NewRunner(cfg.BulkTool, cfg.BulkArgs)
		if err := runner.Run(context.Background(), src, dst, cfg.LogDir); err != nil {
			return err
		}

		fmt.Println("done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
