// Package indicator tracks per-subscription message-waiting and
// call-forwarding indicators and reconciles them against the set of
// active subscriptions.
//
// Registry and Reconciler are not safe for concurrent use. They are owned
// by the daemon's dispatcher goroutine, which serialises every access.
package indicator

import (
	"sort"

	"github.com/jmylchreest/telnotify/internal/model"
)

// Registration is the handle for a listener registered on one subscription.
type Registration interface {
	Unregister() error
}

// Registry is the per-subscription indicator cache plus the set of
// subscriptions that currently have a listener registered.
type Registry struct {
	values        map[model.IndicatorKind]map[model.SubscriptionID]bool
	registrations map[model.SubscriptionID]Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	values := make(map[model.IndicatorKind]map[model.SubscriptionID]bool, len(model.IndicatorKinds))
	for _, kind := range model.IndicatorKinds {
		values[kind] = make(map[model.SubscriptionID]bool)
	}
	return &Registry{
		values:        values,
		registrations: make(map[model.SubscriptionID]Registration),
	}
}

// Set records the latest known value of kind for subID.
func (r *Registry) Set(subID model.SubscriptionID, kind model.IndicatorKind, visible bool) {
	m, ok := r.values[kind]
	if !ok {
		m = make(map[model.SubscriptionID]bool)
		r.values[kind] = m
	}
	m[subID] = visible
}

// Get returns the recorded value of kind for subID, and whether one exists.
func (r *Registry) Get(subID model.SubscriptionID, kind model.IndicatorKind) (visible bool, ok bool) {
	visible, ok = r.values[kind][subID]
	return visible, ok
}

// Clear removes every indicator value recorded for subID.
func (r *Registry) Clear(subID model.SubscriptionID) {
	for _, m := range r.values {
		delete(m, subID)
	}
}

// Subscriptions returns, in ascending order, every subscription with at
// least one recorded indicator value.
func (r *Registry) Subscriptions() []model.SubscriptionID {
	seen := make(map[model.SubscriptionID]bool)
	for _, m := range r.values {
		for id := range m {
			seen[id] = true
		}
	}
	ids := make([]model.SubscriptionID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Track records the listener registration for subID.
func (r *Registry) Track(subID model.SubscriptionID, reg Registration) {
	r.registrations[subID] = reg
}

// Untrack forgets the registration for subID and returns it.
func (r *Registry) Untrack(subID model.SubscriptionID) (Registration, bool) {
	reg, ok := r.registrations[subID]
	if ok {
		delete(r.registrations, subID)
	}
	return reg, ok
}

// IsTracked reports whether subID has a registered listener.
func (r *Registry) IsTracked(subID model.SubscriptionID) bool {
	_, ok := r.registrations[subID]
	return ok
}

// Tracked returns the tracked subscription IDs in ascending order.
func (r *Registry) Tracked() []model.SubscriptionID {
	ids := make([]model.SubscriptionID, 0, len(r.registrations))
	for id := range r.registrations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TrackedCount returns the number of tracked subscriptions.
func (r *Registry) TrackedCount() int {
	return len(r.registrations)
}

// Snapshot returns every recorded indicator value, ordered by subscription
// then kind. Slot is filled in by slotOf when non-nil.
func (r *Registry) Snapshot(slotOf func(model.SubscriptionID) model.SlotIndex) []model.IndicatorState {
	var states []model.IndicatorState
	for _, kind := range model.IndicatorKinds {
		for subID, visible := range r.values[kind] {
			slot := model.InvalidSlot
			if slotOf != nil {
				slot = slotOf(subID)
			}
			states = append(states, model.IndicatorState{
				SubID:   subID,
				Slot:    slot,
				Kind:    kind.String(),
				Visible: visible,
			})
		}
	}

	sort.SliceStable(states, func(i, j int) bool {
		if states[i].SubID != states[j].SubID {
			return states[i].SubID < states[j].SubID
		}
		return states[i].Kind > states[j].Kind // "mwi" before "cfi"
	})
	return states
}
