package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riptide-engine/riptide/internal/config"
	"github.com/riptide-engine/riptide/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile string
	logLevel   string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "riptide",
	Short:   "Headless-capable web crawling and content extraction engine",
	Version: Version,
	Long: `riptide crawls and extracts structured content from web pages, choosing
between a raw HTTP fetch and headless rendering per URL based on a
confidence gate, with in-memory caching, per-host rate limiting, and
global/per-host/per-session budget enforcement.

Run "riptide serve" to expose the HTTP API, or "riptide crawl"/"riptide
spider" for one-shot CLI runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		logCfg := logging.Config{
			Level:      loaded.Logging.Level,
			LogDir:     loaded.Logging.LogDir,
			MaxSizeMB:  loaded.Logging.Rotation.MaxSize,
			MaxBackups: loaded.Logging.Rotation.MaxBackups,
			MaxAgeDays: loaded.Logging.Rotation.MaxAge,
			Compress:   loaded.Logging.Rotation.Compress,
		}
		if err := logging.Init(logCfg); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		if verbose {
			logging.Info("verbose mode enabled")
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(spiderCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
