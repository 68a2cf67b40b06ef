package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/lsp/config"
	coremon "github.com/kilianp07/lsp/core/monitoring"
	"github.com/kilianp07/lsp/infra/logger"
	"github.com/kilianp07/lsp/infra/monitoring"
)

var (
	cfgPath string
	envFile string
	cfg     *config.Config
	cleanup []func()
)

var rootCmd = &cobra.Command{
	Use:               "lsp",
	Short:             "Logistic chain scheduling engine",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { teardown() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before the configuration")
}

// Execute runs the CLI.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

func setup(*cobra.Command, []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env file: %w", err)
	}
	var err error
	if cfg, err = config.Load(cfgPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Logging.File != "" {
		closer := logger.TeeToFile(logger.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		})
		cleanup = append(cleanup, func() { _ = closer.Close() })
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	cleanup = append(cleanup, func() { coremon.Flush(2 * time.Second) })
	return nil
}

func teardown() {
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	cleanup = nil
}
