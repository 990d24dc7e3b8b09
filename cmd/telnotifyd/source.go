package main

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/telnotify/internal/config"
	"github.com/jmylchreest/telnotify/internal/dbus"
	"github.com/jmylchreest/telnotify/internal/indicator"
)

// errNoSource is returned when oFono cannot be used and injection is off.
var errNoSource = errors.New("no event source available: oFono unavailable and injection disabled")

// selectSource picks oFono when it is enabled and running, and otherwise
// falls back to the configured static subscriptions. The returned
// OfonoSource is nil when the fallback was taken.
func selectSource(
	cfg config.SourcesConfig,
	connect func() (*dbus.OfonoSource, error),
	onUnavailable func(error),
	logger *slog.Logger,
) (eventSource, *dbus.OfonoSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Ofono {
		ofono, err := connect()
		if err == nil {
			return ofono, ofono, nil
		}
		logger.Warn("oFono unavailable", "error", err)
		if onUnavailable != nil {
			onUnavailable(err)
		}
	}

	if !cfg.Inject {
		return nil, nil, errNoSource
	}
	logger.Info("using static subscriptions", "subscriptions", cfg.Subscriptions)
	return indicator.NewStaticSource(staticSubscriptions(cfg.Subscriptions)...), nil, nil
}
