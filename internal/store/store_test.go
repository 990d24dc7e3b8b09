package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/model"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "telnotify", "state.json")
}

func TestLoadSharedState_Missing(t *testing.T) {
	state, err := LoadSharedState(testPath(t))
	require.NoError(t, err)
	assert.False(t, state.QuietEnabled)
	assert.Empty(t, state.Indicators)
	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
}

func TestLoadSharedState_Corrupted(t *testing.T) {
	path := testPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	state, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSharedState(), state)
}

func TestSharedState_SaveLoad(t *testing.T) {
	path := testPath(t)

	state := DefaultSharedState()
	state.SetQuiet(true, QuietTriggerUser, "quiet on", "cli")
	state.SetIndicators([]model.IndicatorState{
		{SubID: 1, Slot: 0, Kind: "mwi", Visible: true},
		{SubID: 2, Slot: 1, Kind: "cfi", Visible: false},
	})
	require.NoError(t, SaveSharedState(path, state))

	loaded, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.True(t, loaded.QuietEnabled)
	require.NotNil(t, loaded.QuietLastTransition)
	assert.Equal(t, "cli", loaded.QuietLastTransition.Source)
	assert.Equal(t, state.Indicators, loaded.Indicators)
	assert.Equal(t, 1, loaded.VisibleCount(model.IndicatorMWI))
	assert.Equal(t, 0, loaded.VisibleCount(model.IndicatorCFI))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestSharedState_ToggleQuiet(t *testing.T) {
	state := DefaultSharedState()
	assert.True(t, state.ToggleQuiet(QuietTriggerUser, "toggle", "cli"))
	assert.False(t, state.ToggleQuiet(QuietTriggerUser, "toggle", "cli"))
	assert.Equal(t, QuietTriggerUser, state.QuietLastTransition.Trigger)
}

func TestStore_SetQuietNotifies(t *testing.T) {
	s := NewStore(testPath(t))
	defer s.Close()
	ch := s.Subscribe()

	require.NoError(t, s.SetQuiet(true, QuietTriggerUser, "quiet on", "cli"))
	assert.True(t, s.Quiet())

	select {
	case ev := <-ch:
		assert.Equal(t, ChangeTypeQuiet, ev.Type)
		assert.True(t, ev.Quiet)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	// Same value again: persisted but no event
	require.NoError(t, s.SetQuiet(true, QuietTriggerUser, "quiet on", "cli"))
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestStore_HydratePicksUpExternalWrites(t *testing.T) {
	path := testPath(t)
	s := NewStore(path)
	defer s.Close()
	require.NoError(t, s.Hydrate())
	ch := s.Subscribe()

	// Another process flips quiet mode
	other := DefaultSharedState()
	other.SetQuiet(true, QuietTriggerUser, "quiet on", "cli")
	require.NoError(t, SaveSharedState(path, other))

	require.NoError(t, s.Hydrate())
	assert.True(t, s.Quiet())

	ev := <-ch
	assert.Equal(t, ChangeTypeQuiet, ev.Type)
	assert.Equal(t, "file", ev.Source)
}

func TestStore_PublishIndicators(t *testing.T) {
	path := testPath(t)
	s := NewStore(path)
	defer s.Close()

	states := []model.IndicatorState{{SubID: 3, Slot: 0, Kind: "mwi", Visible: true}}
	require.NoError(t, s.PublishIndicators(states, model.EventIndicatorChanged))

	snap := s.Snapshot()
	assert.Equal(t, states, snap.Indicators)
	assert.Equal(t, string(model.EventIndicatorChanged), snap.LastEventKind)
	assert.NotZero(t, snap.IndicatorsUpdatedAt)

	// Snapshot is a copy
	snap.Indicators[0].Visible = false
	assert.True(t, s.Snapshot().Indicators[0].Visible)

	loaded, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.Equal(t, states, loaded.Indicators)
}

func TestStore_Closed(t *testing.T) {
	s := NewStore(testPath(t))
	ch := s.Subscribe()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok, "subscriber channel closed")
	assert.ErrorIs(t, s.SetQuiet(true, QuietTriggerUser, "", "cli"), ErrStoreClosed)
	assert.ErrorIs(t, s.PublishIndicators(nil, model.EventDisconnect), ErrStoreClosed)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(testPath(t))
	defer s.Close()

	ch := s.Subscribe()
	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestFileWatcher_RehydratesOnWrite(t *testing.T) {
	path := testPath(t)
	require.NoError(t, SaveSharedState(path, DefaultSharedState()))

	s := NewStore(path)
	defer s.Close()
	require.NoError(t, s.Hydrate())

	fw, err := NewFileWatcher(s, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	other := DefaultSharedState()
	other.SetQuiet(true, QuietTriggerUser, "quiet on", "cli")
	require.NoError(t, SaveSharedState(path, other))

	assert.Eventually(t, s.Quiet, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	s := NewStore(testPath(t))
	defer s.Close()

	fw, err := NewFileWatcher(s, nil)
	require.NoError(t, err)
	fw.SetDebounce(5 * time.Millisecond)
	require.NoError(t, fw.Start())

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}
