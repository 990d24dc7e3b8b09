// Package core provides filtering, sorting, and lookup logic for the
// event journal.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/telnotify/internal/model"
	"github.com/jmylchreest/telnotify/internal/store"
)

// FilterOptions specifies criteria for filtering journal entries.
type FilterOptions struct {
	Since   time.Duration     // Entries newer than now-since (0=all)
	Kinds   []model.EventKind // Any of these kinds (empty=any)
	SubID   *int              // Only this subscription (nil=any)
	Outcome string            // "handled" or "dropped" (empty=any)
	Limit   int               // Maximum results (0=unlimited)
}

// Filter returns the entries matching opts, preserving order.
func Filter(entries []store.JournalEntry, opts FilterOptions) []store.JournalEntry {
	return filterAt(entries, opts, time.Now())
}

func filterAt(entries []store.JournalEntry, opts FilterOptions, now time.Time) []store.JournalEntry {
	result := make([]store.JournalEntry, 0, len(entries))

	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = now.Add(-opts.Since)
	}

	for _, e := range entries {
		if !cutoff.IsZero() && e.Time().Before(cutoff) {
			continue
		}
		if len(opts.Kinds) > 0 && !containsKind(opts.Kinds, e.Kind) {
			continue
		}
		if opts.SubID != nil && e.SubID != *opts.SubID {
			continue
		}
		if opts.Outcome != "" && e.Outcome != opts.Outcome {
			continue
		}
		result = append(result, e)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

func containsKind(kinds []model.EventKind, kind string) bool {
	for _, k := range kinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseKinds parses a comma-separated list of event kinds.
func ParseKinds(s string) ([]model.EventKind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	known := make(map[model.EventKind]bool)
	for _, k := range model.EventKinds() {
		known[k] = true
	}

	var kinds []model.EventKind
	for _, part := range strings.Split(s, ",") {
		k := model.EventKind(strings.ToLower(strings.TrimSpace(part)))
		if k == "" {
			continue
		}
		if !known[k] {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownEventKind, part)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ParseOutcome validates an outcome filter.
func ParseOutcome(s string) (string, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "handled", "dropped":
		return s, nil
	default:
		return "", fmt.Errorf("invalid outcome: %s (use handled or dropped)", s)
	}
}
