package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source         string        `mapstructure:"source"`
	Destination    string        `mapstructure:"destination"`
	LogDir         string        `mapstructure:"log_dir"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	RescanInterval time.Duration `mapstructure:"rescan_interval"`
	DedupeWindow   time.Duration `mapstructure:"dedupe_window"`
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxDispatches  int64         `mapstructure:"max_dispatches"`
	IgnoreList     []string      `mapstructure:"ignore_list"`
	DaemonPort     int           `mapstructure:"daemon_port"`
	DBPath         string        `mapstructure:"db_path"`
	BulkTool       string        `mapstructure:"bulk_tool"`
	BulkArgs       []string      `mapstructure:"bulk_args"`
}

var Default = Config{
	PollInterval:   time.Second,
	MaxWait:        60 * time.Second,
	RescanInterval: 30 * time.Second,
	DedupeWindow:   500 * time.Millisecond,
	BufferSize:     100,
	MaxDispatches:  64,
	IgnoreList:     []string{".git", ".DS_Store", "*.tmp", "*.swp", "*.part"},
	DaemonPort:     9401,
	DBPath:         "mirrord.db",
	BulkTool:       "rsync",
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".mirrord")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("poll_interval", Default.PollInterval)
	viper.SetDefault("max_wait", Default.MaxWait)
	viper.SetDefault("rescan_interval", Default.RescanInterval)
	viper.SetDefault("dedupe_window", Default.DedupeWindow)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("max_dispatches", Default.MaxDispatches)
	viper.SetDefault("ignore_list", Default.IgnoreList)
	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("db_path", Default.DBPath)
	viper.SetDefault("bulk_tool", Default.BulkTool)

	viper.SetEnvPrefix("MIRRORD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateRoots checks the settings the watch phase cannot run without.
func (c *Config) ValidateRoots() error {
	if c.Source == "" || c.Destination == "" {
		return errors.New("source and destination are required")
	}

	if _, err := os.Stat(c.Source); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}

	return nil
}
