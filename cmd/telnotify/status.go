package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/telnotify/internal/model"
	"github.com/jmylchreest/telnotify/internal/store"
)

var statusOpts struct {
	format string
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text" yaml:"text"`
	Alt        string `json:"alt,omitempty" yaml:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Class      string `json:"class,omitempty" yaml:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty" yaml:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible indicator status",
	Long: `Output voicemail and call forwarding indicators in Waybar's custom
module JSON format, read from the state file telnotifyd publishes.

  "custom/telephony": {
    "exec": "telnotify status",
    "interval": 5,
    "return-type": "json",
    "on-click": "telnotify quiet toggle"
  }

The output includes:
  - text: Number of visible indicators
  - alt: voicemail, forwarding, voicemail-forwarding or none, with a
    -quiet suffix while quiet mode is on
  - tooltip: Which SIM each indicator belongs to
  - class: Same as alt`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "json",
		"Output format (json, yaml, text)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := store.LoadSharedState(statePath())
	if err != nil {
		return writeStatus(cmd.OutOrStdout(), WaybarStatus{Alt: "error", Class: "error"}, statusOpts.format)
	}
	return writeStatus(cmd.OutOrStdout(), generateStatus(state, time.Now()), statusOpts.format)
}

// generateStatus builds the Waybar status for state as seen at now.
func generateStatus(state *store.SharedState, now time.Time) WaybarStatus {
	mwi := state.VisibleCount(model.IndicatorMWI)
	cfi := state.VisibleCount(model.IndicatorCFI)

	alt := "none"
	switch {
	case mwi > 0 && cfi > 0:
		alt = "voicemail-forwarding"
	case mwi > 0:
		alt = "voicemail"
	case cfi > 0:
		alt = "forwarding"
	}
	if state.QuietEnabled {
		alt += "-quiet"
	}

	text := ""
	if total := mwi + cfi; total > 0 {
		text = fmt.Sprintf("%d", total)
	}

	return WaybarStatus{
		Text:       text,
		Alt:        alt,
		Tooltip:    buildTooltip(state, now),
		Class:      alt,
		Percentage: min(mwi+cfi, 100),
	}
}

// buildTooltip lists visible indicators, quiet mode and the last event.
func buildTooltip(state *store.SharedState, now time.Time) string {
	var lines []string

	for _, st := range state.Indicators {
		if !st.Visible {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", indicatorLabel(st.Kind), slotLabel(st)))
	}
	if len(lines) == 0 {
		lines = append(lines, "No indicators")
	}

	if state.QuietEnabled {
		line := "Quiet mode on"
		if t := state.QuietLastTransition; t != nil && t.Timestamp > 0 {
			line += " since " + humanize.RelTime(time.Unix(t.Timestamp, 0), now, "ago", "from now")
		}
		lines = append(lines, line)
	}

	if state.LastEventAt > 0 {
		lines = append(lines, fmt.Sprintf("Last event: %s %s", state.LastEventKind,
			humanize.RelTime(time.Unix(state.LastEventAt, 0), now, "ago", "from now")))
	}

	return strings.Join(lines, "\n")
}

func indicatorLabel(kind string) string {
	switch kind {
	case model.IndicatorMWI.String():
		return "Voicemail waiting"
	case model.IndicatorCFI.String():
		return "Call forwarding on"
	default:
		return kind
	}
}

func slotLabel(st model.IndicatorState) string {
	if st.Slot != model.InvalidSlot {
		return fmt.Sprintf("SIM %d", int(st.Slot)+1)
	}
	return fmt.Sprintf("subscription %d", int(st.SubID))
}

// writeStatus writes status in the requested format.
func writeStatus(w io.Writer, status WaybarStatus, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		encoder := yaml.NewEncoder(w)
		if err := encoder.Encode(status); err != nil {
			return err
		}
		return encoder.Close()
	case "text", "plain":
		text := status.Text
		if text == "" {
			text = "0"
		}
		_, err := fmt.Fprintf(w, "%s (%s)\n%s\n", text, status.Alt, status.Tooltip)
		return err
	case "json", "":
		return json.NewEncoder(w).Encode(status)
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q, using json\n", format)
		return json.NewEncoder(w).Encode(status)
	}
}
