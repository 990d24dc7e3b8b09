package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/core"
	"github.com/jmylchreest/telnotify/internal/store"
)

func journalEntries() []store.JournalEntry {
	return []store.JournalEntry{
		{ID: "01A", Kind: "disconnect", SubID: 1, Timestamp: 100, Detail: "cause=busy", Outcome: "handled"},
		{ID: "01B", Kind: "display-info", SubID: 1, Timestamp: 200, Detail: `text="Hello"`, Outcome: "handled"},
		{ID: "01C", Kind: "disconnect", SubID: 2, Timestamp: 300, Detail: "cause=congestion", Outcome: "handled"},
	}
}

func TestSelectEvents_SortsBeforeLimit(t *testing.T) {
	got := selectEvents(journalEntries(),
		core.FilterOptions{Limit: 2},
		"",
		core.DefaultSortOptions(),
	)
	require.Len(t, got, 2)
	assert.Equal(t, "01C", got[0].ID)
	assert.Equal(t, "01B", got[1].ID)
}

func TestSelectEvents_SearchAndKind(t *testing.T) {
	opts := core.FilterOptions{}
	var err error
	opts.Kinds, err = core.ParseKinds("disconnect")
	require.NoError(t, err)

	got := selectEvents(journalEntries(), opts, "CONGEST", core.DefaultSortOptions())
	require.Len(t, got, 1)
	assert.Equal(t, "01C", got[0].ID)
}

func TestPrintPrunePreview(t *testing.T) {
	all := journalEntries()

	var buf bytes.Buffer
	printPrunePreview(&buf, all, all)
	assert.Equal(t, "No events to remove\n", buf.String())

	buf.Reset()
	printPrunePreview(&buf, all, all[2:])
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Would remove 2 event(s):", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  - 01A disconnect sub 1 ("))
}
