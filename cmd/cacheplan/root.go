package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cacheplan/internal/config"
)

var (
	configFiles []string // YAML files merged in order
	logLevel    string   // overrides logging.level
	logFormat   string   // overrides logging.format
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "cacheplan",
	Short:         "Place videos into capacity-limited caches to minimize request latency",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// loadConfig merges config files, environment and the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(configFiles...)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func newLogger(lc config.Logging) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if lc.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(logger), nil
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "YAML config files, later files override earlier ones")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(solveCmd, serveCmd, versionCmd)
}
