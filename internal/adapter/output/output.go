// Package output provides output formatters for event journal entries.
package output

import (
	"io"

	"github.com/jmylchreest/telnotify/internal/store"
)

// Formatter formats journal entries for output.
type Formatter interface {
	// Format writes formatted entries to the writer.
	Format(w io.Writer, entries []store.JournalEntry) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatIDs   FormatType = "ids"
)

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template     string // Custom template for plain format
	ShowIndex    bool   // Show 1-based index prefix
	ShowTime     bool   // Show relative time
	DetailMaxLen int    // Maximum detail length (0 = unlimited)
	Separator    string // Field separator for plain format
}

// DefaultFormatterOptions returns sensible defaults for plain output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:    true,
		ShowTime:     true,
		DetailMaxLen: 80,
		Separator:    " | ",
	}
}
