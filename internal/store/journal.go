package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalSchemaVersion is the current event journal schema version.
const JournalSchemaVersion = 1

// JournalEntry is one handled (or dropped) radio event.
type JournalEntry struct {
	ID        string `json:"id" yaml:"id"`
	Kind      string `json:"kind" yaml:"kind"`
	SubID     int    `json:"sub_id" yaml:"sub_id"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Outcome   string `json:"outcome" yaml:"outcome"`
}

// Time returns the entry timestamp.
func (e JournalEntry) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// journalHeader is the first line of the JSONL file.
type journalHeader struct {
	TelnotifySchemaVersion int   `json:"telnotify_schema_version"`
	CreatedAt              int64 `json:"created_at"`
}

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// Journal is an append-only JSONL log of radio events.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// OpenJournal opens the journal at path, creating it with a header if needed.
func OpenJournal(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	j := &Journal{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := writeJournalHeader(file); err != nil {
			file.Close()
			return nil, err
		}
	}
	return j, nil
}

func writeJournalHeader(w io.Writer) error {
	data, err := json.Marshal(journalHeader{
		TelnotifySchemaVersion: JournalSchemaVersion,
		CreatedAt:              time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one entry.
func (j *Journal) Append(e JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return j.file.Sync()
}

// Load returns every entry in file order. Malformed lines are skipped.
func (j *Journal) Load() ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return nil, ErrJournalClosed
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}

	entries, err := readJournal(j.file)

	if _, serr := j.file.Seek(0, io.SeekEnd); serr != nil && err == nil {
		err = serr
	}
	return entries, err
}

// ReadJournal reads the journal at path without opening it for writing.
// A missing file is an empty journal.
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return readJournal(f)
}

func readJournal(r io.Reader) ([]JournalEntry, error) {
	scanner := bufio.NewScanner(r)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []JournalEntry
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header journalHeader
			if err := json.Unmarshal(line, &header); err == nil && header.TelnotifySchemaVersion > 0 {
				if header.TelnotifySchemaVersion > JournalSchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.TelnotifySchemaVersion, JournalSchemaVersion)
				}
				continue
			}
		}

		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading journal: %w", err)
	}
	return entries, nil
}

// Prune rewrites the journal keeping entries newer than maxAge (0 keeps all
// ages) and at most maxEntries of the most recent (0 keeps all). Returns how
// many entries were removed.
func (j *Journal) Prune(maxAge time.Duration, maxEntries int) (int, error) {
	entries, err := j.Load()
	if err != nil {
		return 0, err
	}

	kept := PruneEntries(entries, time.Now(), maxAge, maxEntries)
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := j.rewrite(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// PruneEntries applies the Prune retention rules to entries.
func PruneEntries(entries []JournalEntry, now time.Time, maxAge time.Duration, maxEntries int) []JournalEntry {
	kept := entries
	if maxAge > 0 {
		cutoff := now.Add(-maxAge).Unix()
		kept = make([]JournalEntry, 0, len(entries))
		for _, e := range entries {
			if e.Timestamp >= cutoff {
				kept = append(kept, e)
			}
		}
	}
	if maxEntries > 0 && len(kept) > maxEntries {
		kept = kept[len(kept)-maxEntries:]
	}
	return kept
}

// rewrite replaces the journal contents, keeping a backup until done.
func (j *Journal) rewrite(entries []JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
		j.file = nil
	}

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC, 0o600)
	if err != nil {
		_ = os.Rename(backupPath, j.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	j.file = file

	if err := writeJournalHeader(file); err != nil {
		return err
	}
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := file.Sync(); err != nil {
		return err
	}

	_ = os.Remove(backupPath)
	return nil
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}
