package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/telnotify/internal/store"
)

var quietOpts struct {
	silent bool // Suppress output, return exit code only
}

// quietCmd represents the quiet command group.
var quietCmd = &cobra.Command{
	Use:   "quiet",
	Short: "Manage quiet mode",
	Long: `Manage quiet mode for telnotifyd.

While quiet mode is on, telnotifyd plays no call tones and updates the
voicemail and call forwarding indicators without popping them. Banners
are still shown.

Use 'telnotify quiet status' to check the current state.
Use 'telnotify quiet on' to enable quiet mode.
Use 'telnotify quiet off' to disable quiet mode.
Use 'telnotify quiet toggle' to toggle quiet mode.

The exit code reflects the resulting state: 0=off, 1=on.`,
	RunE: quietStatusRun,
}

var quietOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable quiet mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateQuiet(cmd.OutOrStdout(), func(s *store.SharedState) bool {
			s.SetQuiet(true, store.QuietTriggerUser, "quiet on", "cli")
			return true
		})
	},
}

var quietOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable quiet mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateQuiet(cmd.OutOrStdout(), func(s *store.SharedState) bool {
			s.SetQuiet(false, store.QuietTriggerUser, "quiet off", "cli")
			return false
		})
	},
}

var quietToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle quiet mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateQuiet(cmd.OutOrStdout(), func(s *store.SharedState) bool {
			return s.ToggleQuiet(store.QuietTriggerUser, "quiet toggle", "cli")
		})
	},
}

var quietStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quiet mode status",
	RunE:  quietStatusRun,
}

func init() {
	quietCmd.AddCommand(quietOnCmd, quietOffCmd, quietToggleCmd, quietStatusCmd)

	for _, cmd := range []*cobra.Command{quietCmd, quietOnCmd, quietOffCmd, quietToggleCmd, quietStatusCmd} {
		cmd.Flags().BoolVarP(&quietOpts.silent, "silent", "s", false,
			"Suppress output, return exit code only (0=off, 1=on)")
	}

	rootCmd.AddCommand(quietCmd)
}

// updateQuiet applies change to the shared state file. telnotifyd watches
// the file and picks the change up.
func updateQuiet(w io.Writer, change func(*store.SharedState) bool) error {
	path := statePath()
	state, err := store.LoadSharedState(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	enabled := change(state)
	if err := store.SaveSharedState(path, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if !quietOpts.silent {
		fmt.Fprintln(w, quietLine(enabled))
	}
	return quietExit(enabled)
}

func quietStatusRun(cmd *cobra.Command, args []string) error {
	state, err := store.LoadSharedState(statePath())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if !quietOpts.silent {
		writeQuietStatus(cmd.OutOrStdout(), state, time.Now())
	}
	return quietExit(state.QuietEnabled)
}

func writeQuietStatus(w io.Writer, state *store.SharedState, now time.Time) {
	fmt.Fprintln(w, quietLine(state.QuietEnabled))

	t := state.QuietLastTransition
	if t == nil {
		return
	}
	fmt.Fprintf(w, "  Last change: %s\n", formatTransitionTime(t.Timestamp, now))
	fmt.Fprintf(w, "  Trigger: %s\n", t.Trigger)
	if t.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", t.Reason)
	}
	if t.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", t.Source)
	}
}

func quietLine(enabled bool) string {
	if enabled {
		return "Quiet mode: enabled"
	}
	return "Quiet mode: disabled"
}

func quietExit(enabled bool) error {
	if enabled {
		return &exitCodeError{code: 1}
	}
	return nil
}

// formatTransitionTime formats a unix timestamp as a human-readable relative time.
func formatTransitionTime(timestamp int64, now time.Time) string {
	return humanize.RelTime(time.Unix(timestamp, 0), now, "ago", "from now")
}
