package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{CloseReasonExpired, "expired"},
		{CloseReasonDismissed, "dismissed"},
		{CloseReasonClosed, "closed"},
		{CloseReasonUndefined, "undefined"},
		{CloseReason(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.String())
		})
	}
}

func TestNotificationHints(t *testing.T) {
	tests := []struct {
		name          string
		hints         map[string]dbus.Variant
		urgency       byte
		category      string
		suppressSound bool
		transient     bool
		resident      bool
	}{
		{
			name:    "empty defaults to normal",
			hints:   nil,
			urgency: UrgencyNormal,
		},
		{
			name:          "built hints",
			hints:         newHints(UrgencyLow, "x-telnotify.mwi").flag("suppress-sound").flag("resident"),
			urgency:       UrgencyLow,
			category:      "x-telnotify.mwi",
			suppressSound: true,
			resident:      true,
		},
		{
			name:      "transient banner",
			hints:     newHints(UrgencyCritical, "").flag("transient"),
			urgency:   UrgencyCritical,
			transient: true,
		},
		{
			name:    "wrong types ignored",
			hints:   map[string]dbus.Variant{"urgency": dbus.MakeVariant("high"), "transient": dbus.MakeVariant(1)},
			urgency: UrgencyNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{Hints: tt.hints}
			assert.Equal(t, tt.urgency, n.Urgency())
			assert.Equal(t, tt.category, n.Category())
			assert.Equal(t, tt.suppressSound, n.SuppressSound())
			assert.Equal(t, tt.transient, n.Transient())
			assert.Equal(t, tt.resident, n.Resident())
		})
	}
}

func TestHintsStr(t *testing.T) {
	h := newHints(UrgencyNormal, "").str("sound-name", "bell")
	assert.Equal(t, "bell", h["sound-name"].Value())
	_, hasCategory := h["category"]
	assert.False(t, hasCategory)
}

// Hint accessors used to inspect what the notifier sent.

// Urgency extracts the urgency hint. Returns UrgencyNormal if not specified.
func (n *Notification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return UrgencyNormal
}

// Category extracts the category hint from the notification.
func (n *Notification) Category() string {
	if v, ok := n.Hints["category"]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// SuppressSound returns true if the suppress-sound hint is set.
func (n *Notification) SuppressSound() bool {
	return n.boolHint("suppress-sound")
}

// Transient returns true if the transient hint is set.
// Transient notifications are not kept in the server's history.
func (n *Notification) Transient() bool {
	return n.boolHint("transient")
}

// Resident returns true if the resident hint is set.
func (n *Notification) Resident() bool {
	return n.boolHint("resident")
}

func (n *Notification) boolHint(name string) bool {
	if v, ok := n.Hints[name]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}
