// Package model defines the core data structures for telnotify.
package model

import (
	"fmt"
	"strings"
)

// SubscriptionID identifies one active SIM/carrier profile.
type SubscriptionID int

// SlotIndex is the physical SIM slot a subscription lives in.
type SlotIndex int

// InvalidSlot is returned for subscriptions with no known slot.
const InvalidSlot SlotIndex = -1

// IndicatorKind is one of the persistent per-subscription status indicators.
type IndicatorKind int

const (
	// IndicatorMWI is the message-waiting (voicemail) indicator.
	IndicatorMWI IndicatorKind = iota
	// IndicatorCFI is the call-forwarding indicator.
	IndicatorCFI
)

// IndicatorKinds lists every kind in display order.
var IndicatorKinds = []IndicatorKind{IndicatorMWI, IndicatorCFI}

// String returns the short name of the indicator kind.
func (k IndicatorKind) String() string {
	switch k {
	case IndicatorMWI:
		return "mwi"
	case IndicatorCFI:
		return "cfi"
	default:
		return "unknown"
	}
}

// ParseIndicatorKind parses "mwi"/"voicemail" or "cfi"/"forwarding".
func ParseIndicatorKind(s string) (IndicatorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mwi", "voicemail", "message-waiting":
		return IndicatorMWI, nil
	case "cfi", "forwarding", "call-forwarding":
		return IndicatorCFI, nil
	default:
		return 0, fmt.Errorf("unknown indicator kind %q", s)
	}
}

// UpdateReason says why a reconciliation pass is running.
// It is either a direct network signal for one (subscription, kind) pair,
// or a full refresh of everything tracked.
type UpdateReason struct {
	network bool
	subID   SubscriptionID
	kind    IndicatorKind
}

// FullRefresh is the reason for a reconciliation not tied to one indicator.
var FullRefresh = UpdateReason{}

// NetworkUpdate returns the reason for a network-driven change of kind on subID.
func NetworkUpdate(subID SubscriptionID, kind IndicatorKind) UpdateReason {
	return UpdateReason{network: true, subID: subID, kind: kind}
}

// IsRefresh reports whether r is a full refresh.
func (r UpdateReason) IsRefresh() bool {
	return !r.network
}

// Targets reports whether r is a network update for exactly (subID, kind).
func (r UpdateReason) Targets(subID SubscriptionID, kind IndicatorKind) bool {
	return r.network && r.subID == subID && r.kind == kind
}

// String returns a log-friendly description.
func (r UpdateReason) String() string {
	if !r.network {
		return "refresh"
	}
	return fmt.Sprintf("network:%d/%s", r.subID, r.kind)
}

// IndicatorState is one recorded indicator value, used for snapshots.
type IndicatorState struct {
	SubID   SubscriptionID `json:"sub_id" yaml:"sub_id"`
	Slot    SlotIndex      `json:"slot" yaml:"slot"`
	Kind    string         `json:"kind" yaml:"kind"`
	Visible bool           `json:"visible" yaml:"visible"`
}
