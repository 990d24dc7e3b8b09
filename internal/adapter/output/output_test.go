package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/telnotify/internal/store"
)

func testEntries() []store.JournalEntry {
	now := time.Now()
	return []store.JournalEntry{
		{
			ID:        "01HZX0AAAA",
			Kind:      "disconnect",
			SubID:     1,
			Timestamp: now.Add(-5 * time.Minute).Unix(),
			Detail:    "cause=busy",
			Outcome:   "handled",
		},
		{
			ID:        "01HZX0BBBB",
			Kind:      "display-info",
			SubID:     2,
			Timestamp: now.Add(-2 * time.Hour).Unix(),
			Detail:    `text="Welcome"`,
			Outcome:   "dropped",
		},
	}
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewPlainFormatter(DefaultFormatterOptions())
	require.NoError(t, formatter.Format(&buf, testEntries()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 | 5m | disconnect | sub 1 | cause=busy", lines[0])
	assert.Equal(t, `2 | 2h | display-info | sub 2 | text="Welcome" (dropped)`, lines[1])
}

func TestPlainFormatter_NoIndexNoTime(t *testing.T) {
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.Separator = "\t"
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testEntries()[:1]))

	assert.Equal(t, "disconnect\tsub 1\tcause=busy\n", buf.String())
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index}}: {{.Entry.Kind}} on {{.Entry.SubID}}"
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testEntries()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "1: disconnect on 1", lines[0])
	assert.Equal(t, "2: display-info on 2", lines[1])
}

func TestPlainFormatter_TruncateDetail(t *testing.T) {
	entries := []store.JournalEntry{{
		Kind:      "display-info",
		Timestamp: time.Now().Unix(),
		Detail:    `text="This is a very long network message that should be truncated"`,
		Outcome:   "handled",
	}}
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.DetailMaxLen = 20
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, entries))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "should be truncated")
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, testEntries()))

	var result []store.JournalEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "disconnect", result[0].Kind)
	assert.Equal(t, "dropped", result[1].Outcome)
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewYAMLFormatter(DefaultFormatterOptions()).Format(&buf, testEntries()))

	var result []store.JournalEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, 2, result[1].SubID)
	assert.Contains(t, buf.String(), "kind: disconnect")
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testEntries()))
	assert.Equal(t, "01HZX0AAAA\n01HZX0BBBB\n", buf.String())
}

func TestFormatField(t *testing.T) {
	e := &store.JournalEntry{
		ID:        "01HZX0AAAA",
		Kind:      "tty-mode",
		SubID:     3,
		Timestamp: 1_700_000_000,
		Detail:    "mode=full",
		Outcome:   "handled",
	}

	tests := []struct {
		field    string
		expected string
	}{
		{"id", "01HZX0AAAA"},
		{"kind", "tty-mode"},
		{"sub", "3"},
		{"sub_id", "3"},
		{"time", time.Unix(1_700_000_000, 0).Format(time.RFC3339)},
		{"outcome", "handled"},
		{"detail", "mode=full"},
		{"unknown", "tty-mode"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatField(e, tt.field))
		})
	}
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	_, ok := NewFormatter(FormatJSON, opts).(*JSONFormatter)
	assert.True(t, ok)
	_, ok = NewFormatter(FormatYAML, opts).(*YAMLFormatter)
	assert.True(t, ok)
	_, ok = NewFormatter(FormatIDs, opts).(*IDsFormatter)
	assert.True(t, ok)
	_, ok = NewFormatter("unknown", opts).(*PlainFormatter)
	assert.True(t, ok, "defaults to plain")
}

func TestSanitizeDetail(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		maxLen   int
		expected string
	}{
		{"simple", "cause=busy", 0, "cause=busy"},
		{"newlines", "text=\"a\nb\"", 0, "text=\"a b\""},
		{"multiple spaces", "kind=mwi   visible=true", 0, "kind=mwi visible=true"},
		{"truncate", "cause=congestion", 8, "cause..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeDetail(tt.detail, tt.maxLen))
		})
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		ts       int64
		expected string
	}{
		{"zero", 0, "unknown"},
		{"now", now.Unix(), "now"},
		{"5 minutes", now.Add(-5 * time.Minute).Unix(), "5m"},
		{"2 hours", now.Add(-2 * time.Hour).Unix(), "2h"},
		{"3 days", now.Add(-72 * time.Hour).Unix(), "3d"},
		{"2 weeks", now.Add(-14 * 24 * time.Hour).Unix(), "2w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, relativeTime(tt.ts))
		})
	}
}
