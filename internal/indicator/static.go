package indicator

import (
	"sync"

	"github.com/jmylchreest/telnotify/internal/model"
)

// StaticSource is a fixed subscription list for hosts without a modem
// stack, where indicator events only arrive by injection. A subscription's
// slot is its position in the list.
type StaticSource struct {
	mu   sync.RWMutex
	subs []model.SubscriptionID
}

// NewStaticSource creates a source reporting subs as always active.
func NewStaticSource(subs ...model.SubscriptionID) *StaticSource {
	s := &StaticSource{}
	s.Set(subs...)
	return s
}

// Set replaces the subscription list.
func (s *StaticSource) Set(subs ...model.SubscriptionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append([]model.SubscriptionID(nil), subs...)
}

// ListActive returns the configured subscriptions.
func (s *StaticSource) ListActive() ([]model.SubscriptionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SubscriptionID(nil), s.subs...), nil
}

// SlotOf returns the position of subID in the list.
func (s *StaticSource) SlotOf(subID model.SubscriptionID) model.SlotIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, id := range s.subs {
		if id == subID {
			return model.SlotIndex(i)
		}
	}
	return model.InvalidSlot
}

// Register returns a no-op registration; injected events need no listener.
func (s *StaticSource) Register(model.SubscriptionID) (Registration, error) {
	return staticRegistration{}, nil
}

type staticRegistration struct{}

func (staticRegistration) Unregister() error { return nil }
