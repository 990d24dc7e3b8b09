// Package metrics exposes telnotifyd counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPath is where the metrics handler is mounted.
const DefaultPath = "/metrics"

// Metrics holds the daemon's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal          *prometheus.CounterVec
	EventsDropped        *prometheus.CounterVec
	TonesTotal           *prometheus.CounterVec
	BannersTotal         *prometheus.CounterVec
	Reconciliations      *prometheus.CounterVec
	StaleSubscriptions   prometheus.Counter
	RegisteredListeners  prometheus.Counter
	TrackedSubscriptions prometheus.Gauge
	HandleDuration       *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telnotify_events_total",
				Help: "Total number of radio events handled",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telnotify_events_dropped_total",
				Help: "Total number of radio events dropped",
			},
			[]string{"reason"},
		),
		TonesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telnotify_tones_total",
				Help: "Total number of tone tasks by outcome",
			},
			[]string{"class", "tone", "result"},
		),
		BannersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telnotify_banners_total",
				Help: "Total number of transient banners shown",
			},
			[]string{"kind"},
		),
		Reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telnotify_reconciliations_total",
				Help: "Total number of indicator reconciliation passes",
			},
			[]string{"reason", "provider"},
		),
		StaleSubscriptions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telnotify_stale_subscriptions_total",
				Help: "Total number of subscriptions dropped as no longer active",
			},
		),
		RegisteredListeners: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telnotify_listener_registrations_total",
				Help: "Total number of indicator listeners registered",
			},
		),
		TrackedSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "telnotify_tracked_subscriptions",
				Help: "Number of subscriptions with a registered indicator listener",
			},
		),
		HandleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "telnotify_event_handle_seconds",
				Help:    "Time taken to handle one event",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.EventsTotal,
		m.EventsDropped,
		m.TonesTotal,
		m.BannersTotal,
		m.Reconciliations,
		m.StaleSubscriptions,
		m.RegisteredListeners,
		m.TrackedSubscriptions,
		m.HandleDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveEvent records one handled event and how long it took.
func (m *Metrics) ObserveEvent(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
	m.HandleDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// EventDropped records a dropped event.
func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// ToneFinished records the outcome of a tone task.
func (m *Metrics) ToneFinished(class, tone, result string) {
	if m == nil {
		return
	}
	m.TonesTotal.WithLabelValues(class, tone, result).Inc()
}

// BannerShown records a banner.
func (m *Metrics) BannerShown(kind string) {
	if m == nil {
		return
	}
	m.BannersTotal.WithLabelValues(kind).Inc()
}

// Reconciled records one reconciliation pass.
func (m *Metrics) Reconciled(reason string, unavailable bool, stale, registered, tracked int) {
	if m == nil {
		return
	}
	provider := "ok"
	if unavailable {
		provider = "unavailable"
	}
	m.Reconciliations.WithLabelValues(reason, provider).Inc()
	m.StaleSubscriptions.Add(float64(stale))
	m.RegisteredListeners.Add(float64(registered))
	m.TrackedSubscriptions.Set(float64(tracked))
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics on listen until ctx is done.
func (m *Metrics) Serve(ctx context.Context, listen string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(DefaultPath, m.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "listen", listen, "path", DefaultPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
