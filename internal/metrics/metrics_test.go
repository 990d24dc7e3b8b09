package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvent("disconnect", time.Millisecond)
		m.EventDropped("queue_full")
		m.ToneFinished("in-call", "busy", "completed")
		m.BannerShown("display-info")
		m.Reconciled("refresh", false, 1, 2, 3)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveEvent("disconnect", time.Millisecond)
	m.ObserveEvent("disconnect", time.Millisecond)
	m.ObserveEvent("display-info", time.Millisecond)
	m.EventDropped("queue_full")
	m.ToneFinished("in-call", "busy", "completed")
	m.BannerShown("tty-mode")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("disconnect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("display-info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TonesTotal.WithLabelValues("in-call", "busy", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BannersTotal.WithLabelValues("tty-mode")))
}

func TestReconciled(t *testing.T) {
	m := New()

	m.Reconciled("refresh", false, 0, 2, 2)
	m.Reconciled("refresh", true, 2, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("refresh", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("refresh", "unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaleSubscriptions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegisteredListeners))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TrackedSubscriptions))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveEvent("signal-info", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `telnotify_events_total{kind="signal-info"} 1`))
	assert.Contains(t, body, "telnotify_tracked_subscriptions")
}
