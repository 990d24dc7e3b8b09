package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/telnotify/internal/dbus"
	"github.com/jmylchreest/telnotify/internal/model"
)

var injectOpts struct {
	sub     int
	timeout time.Duration
}

var injectCmd = &cobra.Command{
	Use:   "inject KIND [key=value...]",
	Short: "Inject a synthetic radio event into telnotifyd",
	Long: `Inject a radio event into a running telnotifyd over the session bus.
The daemon handles it exactly like an event from the modem.

Kinds and their arguments:
  disconnect            cause=busy|congestion|call-drop|local|normal|...
  display-info          text=...
  signal-info           tone=alert|busy|...|none
  indicator-changed     kind=mwi|cfi visible=true|false
  tty-mode              mode=off|full|hco|vco
  supp-service-failed   service=switch|separate|transfer|conference|reject|hangup|hold|resume
  subscriptions-changed

Examples:
  telnotify inject disconnect cause=busy
  telnotify inject indicator-changed --sub 2 kind=mwi visible=true
  telnotify inject display-info text="Welcome to the network"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)

	injectCmd.Flags().IntVar(&injectOpts.sub, "sub", 1,
		"Subscription the event belongs to")
	injectCmd.Flags().DurationVar(&injectOpts.timeout, "timeout", 5*time.Second,
		"D-Bus call timeout")
}

func runInject(cmd *cobra.Command, args []string) error {
	kind := args[0]
	kv, err := parseKeyValues(args[1:])
	if err != nil {
		return err
	}

	// Validate locally for a better error than the daemon's.
	if _, err := model.ParseEvent(kind, model.SubscriptionID(injectOpts.sub), kv); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), injectOpts.timeout)
	defer cancel()

	id, err := dbus.InjectEvent(ctx, kind, int32(injectOpts.sub), kv)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// parseKeyValues parses key=value arguments. Keys are lower-cased.
func parseKeyValues(args []string) (map[string]string, error) {
	kv := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", arg)
		}
		kv[key] = value
	}
	return kv, nil
}
