package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind tags a radio event.
type EventKind string

const (
	EventDisconnect           EventKind = "disconnect"
	EventDisplayInfo          EventKind = "display-info"
	EventSignalInfo           EventKind = "signal-info"
	EventIndicatorChanged     EventKind = "indicator-changed"
	EventTTYMode              EventKind = "tty-mode"
	EventSuppServiceFailed    EventKind = "supp-service-failed"
	EventSubscriptionsChanged EventKind = "subscriptions-changed"
)

// EventKinds lists every known event kind.
func EventKinds() []EventKind {
	return []EventKind{
		EventDisconnect,
		EventDisplayInfo,
		EventSignalInfo,
		EventIndicatorChanged,
		EventTTYMode,
		EventSuppServiceFailed,
		EventSubscriptionsChanged,
	}
}

// Event is one asynchronous event delivered by a radio event source.
type Event struct {
	ID       string         // ULID
	Kind     EventKind      // Selects the handler
	SubID    SubscriptionID // Subscription the event belongs to
	Received time.Time      // When the source produced it
	Payload  any            // One of the *Payload types below, or nil
}

// DisconnectPayload accompanies EventDisconnect.
type DisconnectPayload struct {
	Cause DisconnectCause
}

// DisplayInfoPayload accompanies EventDisplayInfo.
type DisplayInfoPayload struct {
	Text string
}

// SignalInfoPayload accompanies EventSignalInfo.
type SignalInfoPayload struct {
	Present bool
	Tone    ToneID
}

// IndicatorPayload accompanies EventIndicatorChanged.
type IndicatorPayload struct {
	Kind    IndicatorKind
	Visible bool
}

// TTYModePayload accompanies EventTTYMode.
type TTYModePayload struct {
	Mode TTYMode
}

// SuppServicePayload accompanies EventSuppServiceFailed.
type SuppServicePayload struct {
	Service SuppService
}

// ErrUnknownEventKind is returned when parsing an event kind nobody handles.
var ErrUnknownEventKind = errors.New("unknown event kind")

// NewEvent creates an event with a generated ULID.
func NewEvent(kind EventKind, subID SubscriptionID, payload any) (*Event, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return &Event{
		ID:       id.String(),
		Kind:     kind,
		SubID:    subID,
		Received: now,
		Payload:  payload,
	}, nil
}

// ParseEvent builds an event from its textual form, as used by the
// injection interface and CLI. Arguments are kind-specific:
//
//	disconnect            cause=busy
//	display-info          text=...
//	signal-info           tone=alert (or tone=off)
//	indicator-changed     kind=mwi visible=true
//	tty-mode              mode=full
//	supp-service-failed   service=conference
//	subscriptions-changed (none)
func ParseEvent(kind string, subID SubscriptionID, args map[string]string) (*Event, error) {
	var payload any

	switch EventKind(kind) {
	case EventDisconnect:
		payload = DisconnectPayload{Cause: ParseDisconnectCause(args["cause"])}
	case EventDisplayInfo:
		payload = DisplayInfoPayload{Text: args["text"]}
	case EventSignalInfo:
		tone := ParseToneID(args["tone"])
		payload = SignalInfoPayload{Present: tone != ToneNone, Tone: tone}
	case EventIndicatorChanged:
		k, err := ParseIndicatorKind(args["kind"])
		if err != nil {
			return nil, err
		}
		visible, err := strconv.ParseBool(args["visible"])
		if err != nil {
			return nil, fmt.Errorf("invalid visible %q: %w", args["visible"], err)
		}
		payload = IndicatorPayload{Kind: k, Visible: visible}
	case EventTTYMode:
		payload = TTYModePayload{Mode: ParseTTYMode(args["mode"])}
	case EventSuppServiceFailed:
		payload = SuppServicePayload{Service: ParseSuppService(args["service"])}
	case EventSubscriptionsChanged:
		payload = nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}

	return NewEvent(EventKind(kind), subID, payload)
}

// DisconnectCause is why a call ended.
type DisconnectCause int

const (
	CauseUnknown DisconnectCause = iota
	CauseNormal
	CauseLocal
	CauseBusy
	CauseCongestion
	CauseReorder
	CauseIntercept
	CauseCallDrop
	CauseOutOfService
	CauseUnobtainable
	CauseErrorUnspecified
)

var disconnectCauseNames = map[DisconnectCause]string{
	CauseUnknown:          "unknown",
	CauseNormal:           "normal",
	CauseLocal:            "local",
	CauseBusy:             "busy",
	CauseCongestion:       "congestion",
	CauseReorder:          "reorder",
	CauseIntercept:        "intercept",
	CauseCallDrop:         "call-drop",
	CauseOutOfService:     "out-of-service",
	CauseUnobtainable:     "unobtainable",
	CauseErrorUnspecified: "error",
}

// String returns the cause name.
func (c DisconnectCause) String() string {
	if name, ok := disconnectCauseNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseDisconnectCause parses a cause name; unrecognised names are CauseUnknown.
func ParseDisconnectCause(s string) DisconnectCause {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range disconnectCauseNames {
		if name == s {
			return c
		}
	}
	return CauseUnknown
}

// ToneID enumerates the tones the daemon can play.
type ToneID int

const (
	ToneNone ToneID = iota
	ToneBusy
	ToneCongestion
	ToneCallEnded
	ToneOutOfService
	ToneReorder
	ToneIntercept
	ToneCallDrop
	ToneUnobtainable
	ToneCallWaiting

	// Signal-info tones requested by the network.
	ToneSignalAlert
	ToneSignalAbbrAlert
	ToneSignalPip
	ToneSignalOff
)

var toneNames = map[ToneID]string{
	ToneNone:            "none",
	ToneBusy:            "busy",
	ToneCongestion:      "congestion",
	ToneCallEnded:       "call-ended",
	ToneOutOfService:    "out-of-service",
	ToneReorder:         "reorder",
	ToneIntercept:       "intercept",
	ToneCallDrop:        "call-drop",
	ToneUnobtainable:    "unobtainable",
	ToneCallWaiting:     "call-waiting",
	ToneSignalAlert:     "alert",
	ToneSignalAbbrAlert: "abbr-alert",
	ToneSignalPip:       "pip",
	ToneSignalOff:       "off",
}

// String returns the tone name.
func (t ToneID) String() string {
	if name, ok := toneNames[t]; ok {
		return name
	}
	return "none"
}

// ParseToneID parses a tone name; unrecognised names are ToneNone.
func ParseToneID(s string) ToneID {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range toneNames {
		if name == s {
			return t
		}
	}
	return ToneNone
}

// TTYMode is the teletypewriter mode of the modem.
type TTYMode int

const (
	TTYModeUnknown TTYMode = iota
	TTYModeOff
	TTYModeFull
	TTYModeHCO // hearing carry-over
	TTYModeVCO // voice carry-over
)

// String returns the mode name.
func (m TTYMode) String() string {
	switch m {
	case TTYModeOff:
		return "off"
	case TTYModeFull:
		return "full"
	case TTYModeHCO:
		return "hco"
	case TTYModeVCO:
		return "vco"
	default:
		return "unknown"
	}
}

// ParseTTYMode parses a mode name; unrecognised names are TTYModeUnknown.
func ParseTTYMode(s string) TTYMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return TTYModeOff
	case "full":
		return TTYModeFull
	case "hco":
		return TTYModeHCO
	case "vco":
		return TTYModeVCO
	default:
		return TTYModeUnknown
	}
}

// SuppService is a supplementary service that can fail mid-call.
type SuppService int

const (
	SuppServiceUnknown SuppService = iota
	SuppServiceSwitch
	SuppServiceSeparate
	SuppServiceTransfer
	SuppServiceConference
	SuppServiceReject
	SuppServiceHangup
	SuppServiceHold
	SuppServiceResume
)

var suppServiceNames = map[SuppService]string{
	SuppServiceUnknown:    "unknown",
	SuppServiceSwitch:     "switch",
	SuppServiceSeparate:   "separate",
	SuppServiceTransfer:   "transfer",
	SuppServiceConference: "conference",
	SuppServiceReject:     "reject",
	SuppServiceHangup:     "hangup",
	SuppServiceHold:       "hold",
	SuppServiceResume:     "resume",
}

// String returns the service name.
func (s SuppService) String() string {
	if name, ok := suppServiceNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSuppService parses a service name; unrecognised names are SuppServiceUnknown.
func ParseSuppService(s string) SuppService {
	s = strings.ToLower(strings.TrimSpace(s))
	for svc, name := range suppServiceNames {
		if name == s {
			return svc
		}
	}
	return SuppServiceUnknown
}
