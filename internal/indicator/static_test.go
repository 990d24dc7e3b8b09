package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/model"
)

func TestStaticSource(t *testing.T) {
	s := NewStaticSource(7, 3)

	active, err := s.ListActive()
	require.NoError(t, err)
	assert.Equal(t, []model.SubscriptionID{7, 3}, active)

	assert.Equal(t, model.SlotIndex(0), s.SlotOf(7))
	assert.Equal(t, model.SlotIndex(1), s.SlotOf(3))
	assert.Equal(t, model.InvalidSlot, s.SlotOf(9))

	reg, err := s.Register(7)
	require.NoError(t, err)
	assert.NoError(t, reg.Unregister())

	s.Set()
	active, err = s.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStaticSource_DrivesReconciler(t *testing.T) {
	s := NewStaticSource(2, 1)
	renderer := &recordingRenderer{}
	rc := NewReconciler(NewRegistry(), s, s, s, renderer, nil)

	res := rc.Reconcile(model.FullRefresh)
	assert.Equal(t, []model.SubscriptionID{1, 2}, res.Registered)

	rc.Registry().Set(1, model.IndicatorMWI, true)
	rc.Registry().Set(2, model.IndicatorMWI, true)
	rc.Reconcile(model.FullRefresh)

	// Sub 2 is listed first, so it owns slot 0
	assert.Equal(t, []string{
		"show 2 mwi true silent=true",
		"show 1 mwi true silent=true",
	}, renderer.calls)
}
