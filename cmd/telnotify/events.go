package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/telnotify/internal/adapter/output"
	"github.com/jmylchreest/telnotify/internal/core"
	"github.com/jmylchreest/telnotify/internal/store"
)

var eventsOpts struct {
	since    string
	kinds    string
	sub      int
	outcome  string
	search   string
	limit    int
	sortBy   string
	order    string
	format   string
	template string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events recorded in the event journal",
	Long: `List the radio events telnotifyd handled or dropped, newest first.

Examples:
  # Everything from the last day
  telnotify events --since 1d

  # Call endings on the second subscription, as JSON
  telnotify events --kind disconnect --sub 2 --format json

  # Custom line format
  telnotify events --template '{{.Entry.ID}} {{.Entry.Kind}} {{reltime .Entry.Timestamp}}'`,
	RunE: runEvents,
}

var eventsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one event by ID or unique ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsShow,
}

var eventsShowOpts struct {
	format string
}

var eventsPruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old entries from the event journal",
	Long: `Remove old entries from the event journal.

Examples:
  # Remove entries older than 7 days
  telnotify events prune --older-than 7d

  # Keep only the 100 most recent entries
  telnotify events prune --keep 100

  # Preview what would be removed
  telnotify events prune --older-than 48h --dry-run`,
	RunE: runEventsPrune,
}

func init() {
	eventsCmd.AddCommand(eventsShowCmd, eventsPruneCmd)
	rootCmd.AddCommand(eventsCmd)

	f := eventsCmd.Flags()
	f.StringVar(&eventsOpts.since, "since", "", "Only entries from the last duration (e.g. 30m, 48h, 7d, 1w)")
	f.StringVarP(&eventsOpts.kinds, "kind", "k", "", "Comma-separated event kinds")
	f.IntVar(&eventsOpts.sub, "sub", 0, "Only this subscription (0=all)")
	f.StringVar(&eventsOpts.outcome, "outcome", "", "Only handled or dropped entries")
	f.StringVar(&eventsOpts.search, "search", "", "Only entries whose detail contains this text")
	f.IntVarP(&eventsOpts.limit, "limit", "n", 50, "Maximum entries (0=unlimited)")
	f.StringVar(&eventsOpts.sortBy, "sort", "timestamp", "Sort field (timestamp, kind, sub)")
	f.StringVar(&eventsOpts.order, "order", "desc", "Sort order (asc, desc)")
	f.StringVarP(&eventsOpts.format, "format", "f", "plain", "Output format (plain, json, yaml, ids)")
	f.StringVar(&eventsOpts.template, "template", "", "Custom Go template for plain output")

	eventsShowCmd.Flags().StringVarP(&eventsShowOpts.format, "format", "f", "json", "Output format (json, yaml, plain)")

	pf := eventsPruneCmd.Flags()
	pf.StringVar(&eventsPruneOpts.olderThan, "older-than", "", "Remove entries older than this duration (e.g. 48h, 7d, 1w)")
	pf.IntVar(&eventsPruneOpts.keep, "keep", 0, "Keep only the N most recent entries (0=unlimited)")
	pf.BoolVar(&eventsPruneOpts.dryRun, "dry-run", false, "Show what would be removed without removing it")
}

func runEvents(cmd *cobra.Command, args []string) error {
	entries, err := store.ReadJournal(journalPath())
	if err != nil {
		return fmt.Errorf("failed to read event journal: %w", err)
	}

	opts, err := eventFilterOptions()
	if err != nil {
		return err
	}
	field, _ := core.ParseSortField(eventsOpts.sortBy)
	order, _ := core.ParseSortOrder(eventsOpts.order)

	entries = selectEvents(entries, opts, eventsOpts.search, core.SortOptions{Field: field, Order: order})
	return newFormatter(eventsOpts.format, eventsOpts.template).Format(cmd.OutOrStdout(), entries)
}

// eventFilterOptions builds filter options from the command flags.
func eventFilterOptions() (core.FilterOptions, error) {
	var opts core.FilterOptions

	since, err := core.ParseDuration(eventsOpts.since)
	if err != nil {
		return opts, err
	}
	opts.Since = since

	if opts.Kinds, err = core.ParseKinds(eventsOpts.kinds); err != nil {
		return opts, err
	}
	if opts.Outcome, err = core.ParseOutcome(eventsOpts.outcome); err != nil {
		return opts, err
	}
	if eventsOpts.sub > 0 {
		sub := eventsOpts.sub
		opts.SubID = &sub
	}
	opts.Limit = eventsOpts.limit
	return opts, nil
}

// selectEvents sorts before limiting so --limit keeps the first entries in
// the requested order.
func selectEvents(entries []store.JournalEntry, opts core.FilterOptions, search string, sortOpts core.SortOptions) []store.JournalEntry {
	limit := opts.Limit
	opts.Limit = 0

	entries = core.Search(core.Filter(entries, opts), search)
	core.Sort(entries, sortOpts)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func newFormatter(format, tmpl string) output.Formatter {
	opts := output.DefaultFormatterOptions()
	opts.Template = tmpl
	return output.NewFormatter(output.FormatType(strings.ToLower(format)), opts)
}

func runEventsShow(cmd *cobra.Command, args []string) error {
	entries, err := store.ReadJournal(journalPath())
	if err != nil {
		return fmt.Errorf("failed to read event journal: %w", err)
	}

	e := core.LookupByID(entries, args[0])
	if e == nil {
		return fmt.Errorf("no unique event matches %q", args[0])
	}
	return newFormatter(eventsShowOpts.format, "").Format(cmd.OutOrStdout(), []store.JournalEntry{*e})
}

func runEventsPrune(cmd *cobra.Command, args []string) error {
	if eventsPruneOpts.olderThan == "" && eventsPruneOpts.keep == 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}

	maxAge, err := core.ParseDuration(eventsPruneOpts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	w := cmd.OutOrStdout()
	if eventsPruneOpts.dryRun {
		entries, err := store.ReadJournal(journalPath())
		if err != nil {
			return fmt.Errorf("failed to read event journal: %w", err)
		}
		kept := store.PruneEntries(entries, time.Now(), maxAge, eventsPruneOpts.keep)
		printPrunePreview(w, entries, kept)
		return nil
	}

	journal, err := store.OpenJournal(journalPath())
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	removed, err := journal.Prune(maxAge, eventsPruneOpts.keep)
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Fprintln(w, "No events to remove")
		return nil
	}
	fmt.Fprintf(w, "Removed %d event(s)\n", removed)
	return nil
}

// printPrunePreview lists up to ten entries that a prune would remove.
func printPrunePreview(w io.Writer, all, kept []store.JournalEntry) {
	keep := make(map[string]bool, len(kept))
	for _, e := range kept {
		keep[e.ID] = true
	}

	var removed []store.JournalEntry
	for _, e := range all {
		if !keep[e.ID] {
			removed = append(removed, e)
		}
	}

	if len(removed) == 0 {
		fmt.Fprintln(w, "No events to remove")
		return
	}

	fmt.Fprintf(w, "Would remove %d event(s):\n", len(removed))
	for i, e := range removed {
		if i >= 10 {
			fmt.Fprintf(w, "  ... and %d more\n", len(removed)-10)
			break
		}
		fmt.Fprintf(w, "  - %s %s sub %d (%s)\n", e.ID, e.Kind, e.SubID, output.FormatField(&e, "time"))
	}
}
