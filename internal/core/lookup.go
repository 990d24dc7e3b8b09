package core

import (
	"strings"

	"github.com/jmylchreest/telnotify/internal/store"
)

// LookupByID finds an entry by its event ID or a unique, case-insensitive
// prefix of it. Returns nil if nothing or more than one entry matches.
func LookupByID(entries []store.JournalEntry, id string) *store.JournalEntry {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil
	}

	var found *store.JournalEntry
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
		if strings.HasPrefix(entries[i].ID, id) {
			if found != nil {
				return nil
			}
			found = &entries[i]
		}
	}
	return found
}

// Search finds entries whose detail contains term, case-insensitively.
func Search(entries []store.JournalEntry, term string) []store.JournalEntry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []store.JournalEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Detail), term) {
			result = append(result, e)
		}
	}
	return result
}

// CountByKind tallies entries per event kind.
func CountByKind(entries []store.JournalEntry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Kind]++
	}
	return counts
}
