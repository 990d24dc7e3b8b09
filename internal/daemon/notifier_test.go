package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/dbus"
)

type sent struct {
	summary string
	body    string
	urgency byte
}

func newTestInternalNotifier() (*InternalNotifier, *[]sent, *time.Time) {
	n := NewInternalNotifier(nil)
	var out []sent
	now := time.Unix(1_700_000_000, 0)
	n.now = func() time.Time { return now }
	n.SetNotifyFunc(func(summary, body string, urgency byte) error {
		out = append(out, sent{summary, body, urgency})
		return nil
	})
	return n, &out, &now
}

func TestInternalNotifier_RateLimitsByKey(t *testing.T) {
	n, out, now := newTestInternalNotifier()

	n.NotifyConfigReloaded()
	n.NotifyConfigReloaded()
	require.Len(t, *out, 1)
	assert.Equal(t, dbus.UrgencyLow, (*out)[0].urgency)

	n.NotifyConfigError(errors.New("bad volume"))
	require.Len(t, *out, 2, "different key is not limited")
	assert.Contains(t, (*out)[1].body, "bad volume")
	assert.Equal(t, dbus.UrgencyNormal, (*out)[1].urgency)

	*now = now.Add(6 * time.Second)
	n.NotifyConfigReloaded()
	assert.Len(t, *out, 3)
}

func TestInternalNotifier_Disabled(t *testing.T) {
	n, out, _ := newTestInternalNotifier()
	n.SetEnabled(false)
	n.NotifyAudioError(errors.New("no device"))
	assert.Empty(t, *out)
}

func TestInternalNotifier_NoHandler(t *testing.T) {
	n := NewInternalNotifier(nil)
	assert.NotPanics(t, func() { n.NotifyQuietChanged(true, "cli") })
}

func TestInternalNotifier_Messages(t *testing.T) {
	n, out, _ := newTestInternalNotifier()
	n.SetMinInterval(0)

	n.NotifyQuietChanged(true, "cli")
	n.NotifyQuietChanged(false, "")
	n.NotifySourceError("ofono", errors.New("service unknown"))

	require.Len(t, *out, 3)
	assert.Equal(t, "Quiet Mode Enabled", (*out)[0].summary)
	assert.Contains(t, (*out)[0].body, "(cli)")
	assert.Equal(t, "Quiet Mode Disabled", (*out)[1].summary)
	assert.Equal(t, dbus.UrgencyCritical, (*out)[2].urgency)
	assert.Equal(t, "ofono: service unknown", (*out)[2].body)
}
