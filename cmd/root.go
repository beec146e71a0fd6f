package cmd

import (
	"fmt"
	"mirrord/internal/config"
	"mirrord/internal/db"
	"mirrord/internal/logger"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "mirrord",
	Short: "Mirror newly created files into a backup tree",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		clientCmds := map[string]bool{
			"status": true, "stop": true, "history": true,
		}

		logDir := ""
		if !clientCmds[cmd.Name()] {
			logDir = cfg.LogDir
		}
		if err := logger.Init(debug, logDir); err != nil {
			return err
		}

		if !clientCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringP("source", "s", "", "Source directory to watch")
	rootCmd.PersistentFlags().StringP("destination", "d", "", "Destination directory to mirror into")
	rootCmd.PersistentFlags().StringP("log-dir", "l", "", "Log directory")

	_ = viper.BindPFlag("source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("destination", rootCmd.PersistentFlags().Lookup("destination"))
	_ = viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
}
