package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/telnotify/internal/store"
)

func ids(entries []store.JournalEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSort_Empty(t *testing.T) {
	var entries []store.JournalEntry
	Sort(entries, DefaultSortOptions())
	assert.Len(t, entries, 0)
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		opts SortOptions
		want []string
	}{
		{"timestamp desc", SortOptions{Field: SortByTimestamp, Order: SortDesc}, []string{"2", "3", "1"}},
		{"timestamp asc", SortOptions{Field: SortByTimestamp, Order: SortAsc}, []string{"1", "3", "2"}},
		{"kind asc", SortOptions{Field: SortByKind, Order: SortAsc}, []string{"3", "1", "2"}},
		{"sub desc keeps ties in order", SortOptions{Field: SortBySub, Order: SortDesc}, []string{"2", "1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []store.JournalEntry{
				{ID: "1", Kind: "display-info", SubID: 1, Timestamp: 100},
				{ID: "2", Kind: "tty-mode", SubID: 2, Timestamp: 300},
				{ID: "3", Kind: "disconnect", SubID: 1, Timestamp: 200},
			}
			Sort(entries, tt.opts)
			assert.Equal(t, tt.want, ids(entries))
		})
	}
}

func TestDefaultSortOptions(t *testing.T) {
	opts := DefaultSortOptions()
	assert.Equal(t, SortByTimestamp, opts.Field)
	assert.Equal(t, SortDesc, opts.Order)
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected SortField
	}{
		{"timestamp", SortByTimestamp},
		{"t", SortByTimestamp},
		{"kind", SortByKind},
		{"SUB", SortBySub},
		{"subscription", SortBySub},
		{"bogus", SortByTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSortField(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	got, _ := ParseSortOrder("asc")
	assert.Equal(t, SortAsc, got)
	got, _ = ParseSortOrder("descending")
	assert.Equal(t, SortDesc, got)
	got, _ = ParseSortOrder("")
	assert.Equal(t, SortDesc, got)
}
