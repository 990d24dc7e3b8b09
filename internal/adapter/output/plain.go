package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/telnotify/internal/store"
)

// PlainFormatter formats entries as one line of text each.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes entries as plain text.
func (f *PlainFormatter) Format(w io.Writer, entries []store.JournalEntry) error {
	for i := range entries {
		if _, err := fmt.Fprintln(w, f.formatLine(i+1, &entries[i])); err != nil {
			return err
		}
	}
	return nil
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Entry        *store.JournalEntry
	RelativeTime string
}

// formatLine formats a single entry.
func (f *PlainFormatter) formatLine(index int, e *store.JournalEntry) string {
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index:        index,
			Entry:        e,
			RelativeTime: relativeTime(e.Timestamp),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: index | time | kind | sub | detail (outcome)
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, relativeTime(e.Timestamp))
	}
	parts = append(parts, e.Kind, fmt.Sprintf("sub %d", e.SubID))

	content := sanitizeDetail(e.Detail, f.opts.DetailMaxLen)
	if e.Outcome != "" && e.Outcome != "handled" {
		content = strings.TrimSpace(content + " (" + e.Outcome + ")")
	}
	if content != "" {
		parts = append(parts, content)
	}

	return strings.Join(parts, sep)
}

// FormatField outputs a specific field from an entry.
func FormatField(e *store.JournalEntry, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return e.ID
	case "kind":
		return e.Kind
	case "sub", "sub_id":
		return fmt.Sprintf("%d", e.SubID)
	case "time", "timestamp":
		return e.Time().Format(time.RFC3339)
	case "outcome":
		return e.Outcome
	case "detail":
		return e.Detail
	default:
		return e.Kind
	}
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": func(ts int64) string {
			return relativeTime(ts)
		},
		"rfc3339": func(ts int64) string {
			return time.Unix(ts, 0).Format(time.RFC3339)
		},
	}
}

// relativeTime returns a compact relative time string.
func relativeTime(timestamp int64) string {
	if timestamp == 0 {
		return "unknown"
	}

	d := time.Since(time.Unix(timestamp, 0))

	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}

// sanitizeDetail collapses whitespace and truncates to maxLen.
func sanitizeDetail(detail string, maxLen int) string {
	detail = strings.Join(strings.Fields(detail), " ")

	if maxLen > 0 && len(detail) > maxLen {
		if maxLen <= 3 {
			return detail[:maxLen]
		}
		return detail[:maxLen-3] + "..."
	}
	return detail
}
