package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(EventDisplayInfo, 3, DisplayInfoPayload{Text: "hello"})
	require.NoError(t, err)

	assert.Len(t, ev.ID, 26)
	assert.Equal(t, EventDisplayInfo, ev.Kind)
	assert.Equal(t, SubscriptionID(3), ev.SubID)
	assert.False(t, ev.Received.IsZero())
	assert.Equal(t, DisplayInfoPayload{Text: "hello"}, ev.Payload)
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		args    map[string]string
		want    any
		wantErr bool
	}{
		{
			name: "disconnect busy",
			kind: "disconnect",
			args: map[string]string{"cause": "busy"},
			want: DisconnectPayload{Cause: CauseBusy},
		},
		{
			name: "display info",
			kind: "display-info",
			args: map[string]string{"text": "Welcome"},
			want: DisplayInfoPayload{Text: "Welcome"},
		},
		{
			name: "signal info present",
			kind: "signal-info",
			args: map[string]string{"tone": "pip"},
			want: SignalInfoPayload{Present: true, Tone: ToneSignalPip},
		},
		{
			name: "signal info absent",
			kind: "signal-info",
			args: nil,
			want: SignalInfoPayload{Present: false, Tone: ToneNone},
		},
		{
			name: "indicator changed",
			kind: "indicator-changed",
			args: map[string]string{"kind": "cfi", "visible": "true"},
			want: IndicatorPayload{Kind: IndicatorCFI, Visible: true},
		},
		{
			name:    "indicator changed bad kind",
			kind:    "indicator-changed",
			args:    map[string]string{"kind": "sms", "visible": "true"},
			wantErr: true,
		},
		{
			name:    "indicator changed bad visible",
			kind:    "indicator-changed",
			args:    map[string]string{"kind": "mwi", "visible": "maybe"},
			wantErr: true,
		},
		{
			name: "tty mode",
			kind: "tty-mode",
			args: map[string]string{"mode": "VCO"},
			want: TTYModePayload{Mode: TTYModeVCO},
		},
		{
			name: "supp service",
			kind: "supp-service-failed",
			args: map[string]string{"service": "conference"},
			want: SuppServicePayload{Service: SuppServiceConference},
		},
		{
			name: "subscriptions changed",
			kind: "subscriptions-changed",
			want: nil,
		},
		{
			name:    "unknown kind",
			kind:    "sms-received",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(tt.kind, 1, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, EventKind(tt.kind), ev.Kind)
			assert.Equal(t, tt.want, ev.Payload)
		})
	}
}

func TestParseEvent_UnknownKindIsSentinel(t *testing.T) {
	_, err := ParseEvent("bogus", 0, nil)
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}

func TestParseNames_Unknown(t *testing.T) {
	assert.Equal(t, CauseUnknown, ParseDisconnectCause("exploded"))
	assert.Equal(t, ToneNone, ParseToneID("trumpet"))
	assert.Equal(t, TTYModeUnknown, ParseTTYMode("braille"))
	assert.Equal(t, SuppServiceUnknown, ParseSuppService("teleport"))
}

func TestNameRoundTrip(t *testing.T) {
	for c := CauseUnknown; c <= CauseErrorUnspecified; c++ {
		assert.Equal(t, c, ParseDisconnectCause(c.String()), c.String())
	}
	for tone := ToneNone; tone <= ToneSignalOff; tone++ {
		assert.Equal(t, tone, ParseToneID(tone.String()), tone.String())
	}
	for s := SuppServiceUnknown; s <= SuppServiceResume; s++ {
		assert.Equal(t, s, ParseSuppService(s.String()), s.String())
	}
}
