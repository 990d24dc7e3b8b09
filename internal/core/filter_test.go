package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/model"
	"github.com/jmylchreest/telnotify/internal/store"
)

var testNow = time.Unix(1_700_000_000, 0)

func testEntries() []store.JournalEntry {
	return []store.JournalEntry{
		{ID: "01A", Kind: "disconnect", SubID: 1, Timestamp: testNow.Add(-10 * time.Minute).Unix(), Detail: "cause=busy", Outcome: "handled"},
		{ID: "01B", Kind: "indicator-changed", SubID: 2, Timestamp: testNow.Add(-2 * time.Hour).Unix(), Detail: "kind=mwi visible=true", Outcome: "handled"},
		{ID: "01C", Kind: "display-info", SubID: 1, Timestamp: testNow.Add(-3 * 24 * time.Hour).Unix(), Detail: `text="Welcome"`, Outcome: "dropped"},
	}
}

func TestFilter_Empty(t *testing.T) {
	result := Filter(nil, FilterOptions{})
	assert.Empty(t, result)
}

func TestFilter_NoFilters(t *testing.T) {
	result := filterAt(testEntries(), FilterOptions{}, testNow)
	assert.Len(t, result, 3)
}

func TestFilter_ByKind(t *testing.T) {
	result := filterAt(testEntries(), FilterOptions{
		Kinds: []model.EventKind{model.EventDisconnect, model.EventDisplayInfo},
	}, testNow)
	require.Len(t, result, 2)
	assert.Equal(t, "01A", result[0].ID)
	assert.Equal(t, "01C", result[1].ID)
}

func TestFilter_BySub(t *testing.T) {
	sub := 2
	result := filterAt(testEntries(), FilterOptions{SubID: &sub}, testNow)
	require.Len(t, result, 1)
	assert.Equal(t, "01B", result[0].ID)
}

func TestFilter_BySince(t *testing.T) {
	result := filterAt(testEntries(), FilterOptions{Since: time.Hour}, testNow)
	require.Len(t, result, 1)
	assert.Equal(t, "01A", result[0].ID)
}

func TestFilter_Combined(t *testing.T) {
	result := filterAt(testEntries(), FilterOptions{
		Since:   7 * 24 * time.Hour,
		Outcome: "handled",
		Limit:   1,
	}, testNow)
	require.Len(t, result, 1)
	assert.Equal(t, "01A", result[0].ID)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"invalid", 0, true},
		{"xd", 0, true},
		{"xw", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("disconnect, Signal-Info")
	require.NoError(t, err)
	assert.Equal(t, []model.EventKind{model.EventDisconnect, model.EventSignalInfo}, kinds)

	kinds, err = ParseKinds("")
	require.NoError(t, err)
	assert.Nil(t, kinds)

	_, err = ParseKinds("disconnect,ringing")
	assert.ErrorIs(t, err, model.ErrUnknownEventKind)
}

func TestParseOutcome(t *testing.T) {
	for _, in := range []string{"", "handled", "DROPPED"} {
		_, err := ParseOutcome(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseOutcome("lost")
	assert.Error(t, err)
}
