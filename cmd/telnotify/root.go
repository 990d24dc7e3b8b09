// Package main provides the CLI entrypoint for telnotify.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/telnotify/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration
var (
	cfg        *config.DaemonConfig
	globalOpts struct {
		verbose     bool
		configPath  string
		stateFile   string
		journalFile string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "telnotify",
	Short: "Control and inspect the telnotifyd telephony notification daemon",
	Long: `telnotify talks to telnotifyd, the daemon that turns modem events into
call tones, banners and voicemail / call-forwarding indicators.

It reads the state file shared with the daemon, toggles quiet mode,
injects synthetic events for testing, and browses the event journal.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		if err := config.LoadEnvFile(config.EnvFilePath()); err != nil {
			logger.Warn("failed to load env file", "error", err)
		}

		var err error
		cfg, err = config.LoadDaemonConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/telnotify/telnotifyd.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.stateFile, "state-file", "",
		"Path to shared state file (default: ~/.local/state/telnotify/state.json)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.journalFile, "journal-file", "",
		"Path to event journal (default: ~/.local/state/telnotify/events.jsonl)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// statePath returns the shared state file, honouring --state-file.
func statePath() string {
	if globalOpts.stateFile != "" {
		return globalOpts.stateFile
	}
	return cfg.GetStatePath()
}

// journalPath returns the event journal, honouring --journal-file.
func journalPath() string {
	if globalOpts.journalFile != "" {
		return globalOpts.journalFile
	}
	return cfg.GetJournalPath()
}
