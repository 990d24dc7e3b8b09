package indicator

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/jmylchreest/telnotify/internal/model"
)

// ErrUnavailable is returned by a SubscriptionProvider that could not
// obtain the active subscription list.
var ErrUnavailable = errors.New("active subscriptions unavailable")

// SubscriptionProvider lists the currently active subscriptions.
type SubscriptionProvider interface {
	ListActive() ([]model.SubscriptionID, error)
}

// SlotResolver maps a subscription to its SIM slot.
// Unknown subscriptions resolve to model.InvalidSlot.
type SlotResolver interface {
	SlotOf(subID model.SubscriptionID) model.SlotIndex
}

// Registrar registers an indicator listener for one subscription.
type Registrar interface {
	Register(subID model.SubscriptionID) (Registration, error)
}

// Renderer displays and hides indicator notifications.
type Renderer interface {
	ShowIndicator(subID model.SubscriptionID, kind model.IndicatorKind, visible, silent bool) error
	HideIndicator(subID model.SubscriptionID, kind model.IndicatorKind) error
}

// Result summarises one reconciliation pass.
type Result struct {
	Reason      model.UpdateReason
	Unavailable bool                   // Provider failed; no registrations were added
	Stale       []model.SubscriptionID // Hidden, unregistered and cleared
	Registered  []model.SubscriptionID // Newly registered
	Updates     int                    // ShowIndicator calls issued
}

// Reconciler synchronises tracked subscriptions and their indicators
// against the active subscription set.
type Reconciler struct {
	registry  *Registry
	provider  SubscriptionProvider
	slots     SlotResolver
	registrar Registrar
	renderer  Renderer
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler over registry.
func NewReconciler(
	registry *Registry,
	provider SubscriptionProvider,
	slots SlotResolver,
	registrar Registrar,
	renderer Renderer,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		registry:  registry,
		provider:  provider,
		slots:     slots,
		registrar: registrar,
		renderer:  renderer,
		logger:    logger,
	}
}

// Registry returns the registry the reconciler mutates.
func (rc *Reconciler) Registry() *Registry {
	return rc.registry
}

// SlotOf resolves the slot for subID.
func (rc *Reconciler) SlotOf(subID model.SubscriptionID) model.SlotIndex {
	if rc.slots == nil {
		return model.InvalidSlot
	}
	return rc.slots.SlotOf(subID)
}

// Reconcile runs one pass:
//  1. subscriptions tracked but no longer active are hidden, unregistered
//     and cleared;
//  2. indicators of the remaining tracked subscriptions are re-rendered in
//     ascending (slot, subscription) order;
//  3. active subscriptions not yet tracked get a listener registered.
//
// If the provider fails, nothing is known to be active: every tracked
// subscription is treated as stale and no registrations are added.
func (rc *Reconciler) Reconcile(reason model.UpdateReason) Result {
	result := Result{Reason: reason}

	active, err := rc.provider.ListActive()
	if err != nil {
		rc.logger.Warn("active subscriptions unavailable, cleaning up only", "error", err)
		result.Unavailable = true
		active = nil
	}

	activeSet := make(map[model.SubscriptionID]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	for _, subID := range rc.registry.Tracked() {
		if activeSet[subID] {
			continue
		}
		rc.dropStale(subID)
		result.Stale = append(result.Stale, subID)
	}
	rc.dropOrphans()

	result.Updates = rc.renderTracked(reason)

	if !result.Unavailable {
		for _, subID := range uniqueSorted(active) {
			if rc.registry.IsTracked(subID) {
				continue
			}
			reg, err := rc.registrar.Register(subID)
			if err != nil {
				rc.logger.Warn("failed to register indicator listener", "sub_id", subID, "error", err)
				continue
			}
			rc.registry.Track(subID, reg)
			result.Registered = append(result.Registered, subID)
		}
	}

	rc.logger.Debug("reconciled subscriptions",
		"reason", reason.String(),
		"stale", len(result.Stale),
		"registered", len(result.Registered),
		"updates", result.Updates,
		"tracked", rc.registry.TrackedCount(),
	)
	return result
}

// dropStale hides both indicators of subID, unregisters its listener and
// clears its state.
func (rc *Reconciler) dropStale(subID model.SubscriptionID) {
	for _, kind := range model.IndicatorKinds {
		if err := rc.renderer.HideIndicator(subID, kind); err != nil {
			rc.logger.Warn("failed to hide indicator", "sub_id", subID, "kind", kind.String(), "error", err)
		}
	}

	if reg, ok := rc.registry.Untrack(subID); ok && reg != nil {
		if err := reg.Unregister(); err != nil {
			rc.logger.Warn("failed to unregister indicator listener", "sub_id", subID, "error", err)
		}
	}

	rc.registry.Clear(subID)
	rc.logger.Debug("dropped stale subscription", "sub_id", subID)
}

// dropOrphans clears state recorded for subscriptions without a listener.
// Such values were never rendered, so nothing is hidden.
func (rc *Reconciler) dropOrphans() {
	for _, subID := range rc.registry.Subscriptions() {
		if rc.registry.IsTracked(subID) {
			continue
		}
		rc.registry.Clear(subID)
		rc.logger.Debug("cleared state of untracked subscription", "sub_id", subID)
	}
}

// renderTracked emits a display update for every recorded indicator of
// every tracked subscription, in slot order, and returns how many it issued.
func (rc *Reconciler) renderTracked(reason model.UpdateReason) int {
	subs := rc.slotOrder(rc.registry.Tracked())

	updates := 0
	for _, subID := range subs {
		for _, kind := range model.IndicatorKinds {
			visible, ok := rc.registry.Get(subID, kind)
			if !ok {
				continue
			}
			silent := !reason.Targets(subID, kind)
			if err := rc.renderer.ShowIndicator(subID, kind, visible, silent); err != nil {
				rc.logger.Warn("failed to update indicator", "sub_id", subID, "kind", kind.String(), "error", err)
				continue
			}
			updates++
		}
	}
	return updates
}

// slotOrder sorts subs ascending by slot, then by subscription ID.
// Subscriptions without a known slot go last.
func (rc *Reconciler) slotOrder(subs []model.SubscriptionID) []model.SubscriptionID {
	slots := make(map[model.SubscriptionID]model.SlotIndex, len(subs))
	for _, id := range subs {
		slots[id] = rc.SlotOf(id)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return lessBySlot(slots[subs[i]], subs[i], slots[subs[j]], subs[j])
	})
	return subs
}

// lessBySlot orders (slot, sub) pairs ascending with InvalidSlot after
// every valid slot.
func lessBySlot(slotA model.SlotIndex, subA model.SubscriptionID, slotB model.SlotIndex, subB model.SubscriptionID) bool {
	validA := slotA != model.InvalidSlot
	validB := slotB != model.InvalidSlot
	if validA != validB {
		return validA
	}
	if slotA != slotB {
		return slotA < slotB
	}
	return subA < subB
}

func uniqueSorted(ids []model.SubscriptionID) []model.SubscriptionID {
	seen := make(map[model.SubscriptionID]bool, len(ids))
	out := make([]model.SubscriptionID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
