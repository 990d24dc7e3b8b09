package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/telnotify/internal/model"
)

// QuietTrigger represents what triggered a quiet mode change.
type QuietTrigger string

const (
	// QuietTriggerUser indicates a user-initiated change (CLI, waybar, etc.)
	QuietTriggerUser QuietTrigger = "user"
	// QuietTriggerConfig indicates the daemon applied its configured default
	QuietTriggerConfig QuietTrigger = "config"
)

// QuietTransition records details about a quiet mode change.
type QuietTransition struct {
	Trigger   QuietTrigger `json:"trigger"`
	Reason    string       `json:"reason"`
	Source    string       `json:"source,omitempty"` // e.g. "cli", "telnotifyd"
	Timestamp int64        `json:"timestamp"`
}

// SharedState contains state that is shared between telnotify and telnotifyd.
// This is persisted to ~/.local/state/telnotify/state.json
type SharedState struct {
	// Quiet mode suppresses tones and pops
	QuietEnabled        bool             `json:"quiet_enabled"`
	QuietLastTransition *QuietTransition `json:"quiet_last_transition,omitempty"`

	// Last indicator snapshot published by the daemon
	Indicators          []model.IndicatorState `json:"indicators"`
	IndicatorsUpdatedAt int64                  `json:"indicators_updated_at,omitempty"`

	// Statistics (optional, for waybar)
	LastEventAt   int64  `json:"last_event_at,omitempty"`
	LastEventKind string `json:"last_event_kind,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to state files from this process.
var stateFileMutex sync.RWMutex

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{
		Indicators:    []model.IndicatorState{},
		SchemaVersion: CurrentSchemaVersion,
	}
}

// LoadSharedState loads the shared state from path.
// If the file doesn't exist or is corrupted, returns a default state.
func LoadSharedState(path string) (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultSharedState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	if state.Indicators == nil {
		state.Indicators = []model.IndicatorState{}
	}

	return &state, nil
}

// SaveSharedState saves the shared state to path.
func SaveSharedState(path string, state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// SetQuiet updates quiet mode and records the transition.
func (s *SharedState) SetQuiet(enabled bool, trigger QuietTrigger, reason, source string) {
	s.QuietEnabled = enabled
	s.QuietLastTransition = &QuietTransition{
		Trigger:   trigger,
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// ToggleQuiet flips quiet mode. Returns the new state.
func (s *SharedState) ToggleQuiet(trigger QuietTrigger, reason, source string) bool {
	s.SetQuiet(!s.QuietEnabled, trigger, reason, source)
	return s.QuietEnabled
}

// SetIndicators replaces the indicator snapshot.
func (s *SharedState) SetIndicators(states []model.IndicatorState) {
	s.Indicators = append([]model.IndicatorState{}, states...)
	s.IndicatorsUpdatedAt = time.Now().Unix()
}

// RecordEvent notes the most recent event handled by the daemon.
func (s *SharedState) RecordEvent(kind model.EventKind) {
	s.LastEventAt = time.Now().Unix()
	s.LastEventKind = string(kind)
}

// VisibleCount returns how many indicators of kind are visible.
func (s *SharedState) VisibleCount(kind model.IndicatorKind) int {
	n := 0
	for _, st := range s.Indicators {
		if st.Visible && st.Kind == kind.String() {
			n++
		}
	}
	return n
}
