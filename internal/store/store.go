// Package store provides the shared state file used by telnotifyd and
// the telnotify CLI.
package store

import (
	"sync"

	"github.com/jmylchreest/telnotify/internal/model"
)

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeQuiet indicates quiet mode changed.
	ChangeTypeQuiet ChangeType = iota
	// ChangeTypeIndicators indicates a new indicator snapshot was published.
	ChangeTypeIndicators
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type   ChangeType
	Quiet  bool
	Source string
}

// Store caches the shared state in memory and writes every change through
// to its file. Hydrate picks up changes made by other processes.
type Store struct {
	mu    sync.RWMutex
	path  string
	state *SharedState

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a Store backed by path. Call Hydrate to load it.
func NewStore(path string) *Store {
	return &Store{
		path:        path,
		state:       DefaultSharedState(),
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Hydrate reloads the state from disk. Subscribers are told when quiet
// mode differs from the cached value.
func (s *Store) Hydrate() error {
	loaded, err := LoadSharedState(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	changed := loaded.QuietEnabled != s.state.QuietEnabled
	s.state = loaded
	if changed {
		s.notifyChange(ChangeEvent{
			Type:   ChangeTypeQuiet,
			Quiet:  loaded.QuietEnabled,
			Source: "file",
		})
	}
	return nil
}

// Quiet reports whether quiet mode is on.
func (s *Store) Quiet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.QuietEnabled
}

// SetQuiet sets quiet mode and persists it.
func (s *Store) SetQuiet(enabled bool, trigger QuietTrigger, reason, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	changed := s.state.QuietEnabled != enabled
	s.state.SetQuiet(enabled, trigger, reason, source)
	if err := SaveSharedState(s.path, s.state); err != nil {
		return err
	}

	if changed {
		s.notifyChange(ChangeEvent{Type: ChangeTypeQuiet, Quiet: enabled, Source: source})
	}
	return nil
}

// PublishIndicators stores a new indicator snapshot and the event that
// produced it.
func (s *Store) PublishIndicators(states []model.IndicatorState, kind model.EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	s.state.SetIndicators(states)
	s.state.RecordEvent(kind)
	if err := SaveSharedState(s.path, s.state); err != nil {
		return err
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeIndicators, Quiet: s.state.QuietEnabled, Source: "daemon"})
	return nil
}

// Snapshot returns a copy of the cached state.
func (s *Store) Snapshot() SharedState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := *s.state
	cp.Indicators = append([]model.IndicatorState{}, s.state.Indicators...)
	if s.state.QuietLastTransition != nil {
		tr := *s.state.QuietLastTransition
		cp.QuietLastTransition = &tr
	}
	return cp
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
// Callers hold s.mu.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Errors
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
