package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/telnotify/internal/model"
)

func TestRegistry_SetGet(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get(1, model.IndicatorMWI)
	assert.False(t, ok, "unset indicator must report not found")

	r.Set(1, model.IndicatorMWI, true)
	visible, ok := r.Get(1, model.IndicatorMWI)
	assert.True(t, ok)
	assert.True(t, visible)

	_, ok = r.Get(1, model.IndicatorCFI)
	assert.False(t, ok, "kinds are independent")
}

func TestRegistry_LatestValueWins(t *testing.T) {
	r := NewRegistry()

	sequence := []struct {
		sub     model.SubscriptionID
		kind    model.IndicatorKind
		visible bool
	}{
		{1, model.IndicatorMWI, true},
		{2, model.IndicatorMWI, true},
		{1, model.IndicatorCFI, true},
		{1, model.IndicatorMWI, false},
		{2, model.IndicatorCFI, false},
		{2, model.IndicatorCFI, true},
	}

	latest := make(map[[2]int]bool)
	for _, step := range sequence {
		r.Set(step.sub, step.kind, step.visible)
		latest[[2]int{int(step.sub), int(step.kind)}] = step.visible

		for key, want := range latest {
			got, ok := r.Get(model.SubscriptionID(key[0]), model.IndicatorKind(key[1]))
			assert.True(t, ok)
			assert.Equal(t, want, got, "sub %d kind %d", key[0], key[1])
		}
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	r.Set(1, model.IndicatorMWI, true)
	r.Set(1, model.IndicatorCFI, false)
	r.Set(2, model.IndicatorMWI, true)

	r.Clear(1)

	_, ok := r.Get(1, model.IndicatorMWI)
	assert.False(t, ok)
	_, ok = r.Get(1, model.IndicatorCFI)
	assert.False(t, ok)
	visible, ok := r.Get(2, model.IndicatorMWI)
	assert.True(t, ok)
	assert.True(t, visible)

	// Clearing an unknown subscription is a no-op
	r.Clear(99)
}

func TestRegistry_Subscriptions(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Subscriptions())

	r.Set(4, model.IndicatorCFI, false)
	r.Set(2, model.IndicatorMWI, true)
	r.Set(4, model.IndicatorMWI, true)
	assert.Equal(t, []model.SubscriptionID{2, 4}, r.Subscriptions())

	r.Clear(2)
	assert.Equal(t, []model.SubscriptionID{4}, r.Subscriptions())
}

func TestRegistry_Tracking(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Tracked())

	r.Track(3, &fakeRegistration{})
	r.Track(1, &fakeRegistration{})
	assert.True(t, r.IsTracked(3))
	assert.Equal(t, []model.SubscriptionID{1, 3}, r.Tracked())
	assert.Equal(t, 2, r.TrackedCount())

	reg, ok := r.Untrack(3)
	assert.True(t, ok)
	assert.NotNil(t, reg)
	assert.False(t, r.IsTracked(3))

	_, ok = r.Untrack(3)
	assert.False(t, ok)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Set(2, model.IndicatorCFI, true)
	r.Set(1, model.IndicatorCFI, false)
	r.Set(1, model.IndicatorMWI, true)

	slots := map[model.SubscriptionID]model.SlotIndex{1: 0, 2: 1}
	got := r.Snapshot(func(id model.SubscriptionID) model.SlotIndex { return slots[id] })

	assert.Equal(t, []model.IndicatorState{
		{SubID: 1, Slot: 0, Kind: "mwi", Visible: true},
		{SubID: 1, Slot: 0, Kind: "cfi", Visible: false},
		{SubID: 2, Slot: 1, Kind: "cfi", Visible: true},
	}, got)

	noSlots := r.Snapshot(nil)
	assert.Equal(t, model.InvalidSlot, noSlots[0].Slot)
}
