// Package main is the entry point for the telnotifyd telephony notification daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/telnotify/internal/config"
	"github.com/jmylchreest/telnotify/internal/daemon"
	"github.com/jmylchreest/telnotify/internal/dbus"
	"github.com/jmylchreest/telnotify/internal/indicator"
	"github.com/jmylchreest/telnotify/internal/metrics"
	"github.com/jmylchreest/telnotify/internal/model"
	"github.com/jmylchreest/telnotify/internal/store"
	"github.com/jmylchreest/telnotify/internal/tone"
)

var (
	// Build-time variables
	version = "dev"
)

// eventSource supplies subscriptions and listener registration to the reconciler.
type eventSource interface {
	indicator.SubscriptionProvider
	indicator.SlotResolver
	indicator.Registrar
}

// postFunc adapts a function to dbus.Poster. Sources are created before the
// dispatcher they post to.
type postFunc func(ev *model.Event) error

func (f postFunc) Post(ev *model.Event) error { return f(ev) }

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/telnotify/telnotifyd.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noAudio := flag.Bool("no-audio", false, "Disable call tones")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("telnotifyd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *noAudio, logger); err != nil {
		logger.Error("telnotifyd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, noAudio bool, logger *slog.Logger) error {
	logger.Info("starting telnotifyd", "version", version)

	if err := config.LoadEnvFile(config.EnvFilePath()); err != nil {
		logger.Warn("failed to load env file", "error", err)
	}

	if configPath == "" {
		configPath = config.DaemonConfigPath()
	}
	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if noAudio {
		cfg.Audio.Enabled = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared state
	statePath := cfg.GetStatePath()
	_, statErr := os.Stat(statePath)
	st := store.NewStore(statePath)
	if err := st.Hydrate(); err != nil {
		logger.Warn("failed to hydrate shared state", "path", statePath, "error", err)
	}
	if errors.Is(statErr, os.ErrNotExist) && cfg.Quiet.Enabled {
		if err := st.SetQuiet(true, store.QuietTriggerConfig, "default", "telnotifyd"); err != nil {
			logger.Warn("failed to apply default quiet mode", "error", err)
		}
	}
	defer func() { _ = st.Close() }()
	logger.Info("shared state loaded", "path", statePath, "quiet", st.Quiet())

	stateWatcher, err := store.NewFileWatcher(st, logger)
	if err != nil {
		logger.Warn("failed to create state watcher", "error", err)
	} else if err := stateWatcher.Start(); err != nil {
		logger.Warn("failed to start state watcher", "error", err)
		stateWatcher = nil
	}

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	notifier, err := dbus.ConnectNotifier(notifierOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to notification service: %w", err)
	}
	if err := notifier.Start(ctx); err != nil {
		logger.Warn("failed to watch notification close signals", "error", err)
	}

	internalNotifier := daemon.NewInternalNotifier(logger)
	internalNotifier.SetNotifyFunc(notifier.Notify)

	provider := tone.NewBeepProvider(logger)
	defer provider.Close()
	tones := tone.NewManager(provider, logger)
	applyAudio(tones, cfg)
	tones.SetFinishCallback(func(class tone.Class, id model.ToneID, result tone.Result) {
		m.ToneFinished(class.String(), id.String(), result.String())
		if result == tone.ResultFailed {
			internalNotifier.NotifyAudioError(fmt.Errorf("%s tone %s failed", class, id))
		}
	})
	defer tones.Close()

	var disp *daemon.Dispatcher
	poster := postFunc(func(ev *model.Event) error { return disp.Post(ev) })

	connect := func() (*dbus.OfonoSource, error) { return dbus.ConnectOfono(poster, logger) }
	source, ofono, err := selectSource(cfg.Sources, connect, func(err error) {
		internalNotifier.NotifySourceError("ofono", err)
	}, logger)
	if err != nil {
		return err
	}
	notifier.SetSlotLookup(source)

	reconciler := indicator.NewReconciler(indicator.NewRegistry(), source, source, source, notifier, logger)
	disp = daemon.NewDispatcher(reconciler, tones, notifier, st, st, m, dispatcherOptions(cfg), logger)

	if cfg.Journal.Enabled {
		journal, err := openJournal(cfg, logger)
		if err != nil {
			logger.Warn("event journal disabled", "error", err)
		} else {
			disp.SetJournal(journal)
			defer func() { _ = journal.Close() }()
		}
	}

	var injectServer *dbus.InjectServer
	if cfg.Sources.Inject {
		injectServer = dbus.NewInjectServer(poster, logger)
		injectServer.SetQuietHandler(func(enabled bool) error {
			return st.SetQuiet(enabled, store.QuietTriggerUser, "dbus", "dbus")
		})
		if err := injectServer.Start(); err != nil {
			logger.Warn("failed to start injection server", "error", err)
			injectServer = nil
		}
	}

	changes := st.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-changes:
				if !ok {
					return
				}
				if ev.Type != store.ChangeTypeQuiet {
					continue
				}
				logger.Info("quiet mode changed", "enabled", ev.Quiet, "source", ev.Source)
				disp.QuietChanged(ev.Quiet)
				internalNotifier.NotifyQuietChanged(ev.Quiet, ev.Source)
			}
		}
	}()

	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
		if noAudio {
			newConfig.Audio.Enabled = false
		}
		notifier.SetOptions(notifierOptions(newConfig))
		applyAudio(tones, newConfig)
		disp.SetOptions(dispatcherOptions(newConfig))
		internalNotifier.NotifyConfigReloaded()
	})
	configWatcher.SetErrorCallback(internalNotifier.NotifyConfigError)
	configWatcher.Start(ctx, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		disp.Run(ctx)
	}()

	if ofono != nil {
		if err := ofono.Start(ctx); err != nil {
			logger.Warn("failed to start oFono source", "error", err)
			internalNotifier.NotifySourceError("ofono", err)
		}
	}

	logger.Info("telnotifyd ready", "quiet", st.Quiet(), "inject", injectServer != nil, "ofono", ofono != nil)

	<-ctx.Done()
	logger.Info("shutting down")

	configWatcher.Stop()
	if injectServer != nil {
		_ = injectServer.Stop()
	}
	if ofono != nil {
		ofono.Stop()
	}
	if stateWatcher != nil {
		_ = stateWatcher.Stop()
	}
	<-done
	st.Unsubscribe(changes)

	logger.Info("telnotifyd stopped")
	return nil
}

func notifierOptions(cfg *config.DaemonConfig) dbus.NotifierOptions {
	return dbus.NotifierOptions{
		AppName: cfg.Indicators.AppName,
		MWIIcon: cfg.Indicators.MWIIcon,
		CFIIcon: cfg.Indicators.CFIIcon,
	}
}

func dispatcherOptions(cfg *config.DaemonConfig) daemon.Options {
	return daemon.Options{
		QueueSize:           cfg.Dispatcher.QueueSize,
		DisplayInfoDuration: cfg.Banners.DisplayInfo.Duration(),
		StatusDuration:      cfg.Banners.Status.Duration(),
	}
}

func applyAudio(m *tone.Manager, cfg *config.DaemonConfig) {
	m.SetEnabled(cfg.Audio.Enabled)
	m.SetVolume(cfg.VolumeFraction())
	m.SetMaxLength(cfg.Audio.MaxToneLength.Duration())
}

func staticSubscriptions(ids []int) []model.SubscriptionID {
	subs := make([]model.SubscriptionID, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, model.SubscriptionID(id))
	}
	return subs
}

func openJournal(cfg *config.DaemonConfig, logger *slog.Logger) (*store.Journal, error) {
	journal, err := store.OpenJournal(cfg.GetJournalPath())
	if err != nil {
		return nil, err
	}
	removed, err := journal.Prune(cfg.Journal.MaxAge.Duration(), cfg.Journal.MaxEntries)
	if err != nil {
		logger.Warn("failed to prune event journal", "error", err)
	} else if removed > 0 {
		logger.Info("pruned event journal", "removed", removed)
	}
	return journal, nil
}
