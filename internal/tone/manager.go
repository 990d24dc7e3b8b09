package tone

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/telnotify/internal/model"
)

// FinishCallback is invoked after a tone task has released its resource.
type FinishCallback func(class Class, id model.ToneID, result Result)

// Manager plays tones so that at most one tone per Class is active.
// Starting a tone stops the previous tone of the same class without
// waiting for it.
type Manager struct {
	mu       sync.Mutex
	logger   *slog.Logger
	provider AudioProvider

	// Configured volume, 0.0 to 1.0
	volume  float64
	enabled bool

	// Upper bound on any tone's length (0 = table length)
	maxLength time.Duration

	current  map[Class]*Tone
	onFinish FinishCallback

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager playing through provider.
func NewManager(provider AudioProvider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:   logger,
		provider: provider,
		volume:   1.0,
		enabled:  true,
		current:  make(map[Class]*Tone),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (m *Manager) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = min(max(volume, 0), 1)
}

// SetEnabled enables or disables tone playback.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// SetMaxLength caps how long any tone plays. Zero removes the cap.
func (m *Manager) SetMaxLength(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxLength = d
}

// SetFinishCallback sets the callback invoked when a tone task ends.
func (m *Manager) SetFinishCallback(cb FinishCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = cb
}

// Play starts id in class, stopping whatever tone of that class is playing.
// It returns the new task, or nil when nothing was started.
func (m *Manager) Play(class Class, id model.ToneID) *Tone {
	spec, ok := Lookup(id)
	if !ok {
		m.logger.Debug("no tone for id", "tone", id.String())
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		m.logger.Debug("tones disabled, skipping", "tone", id.String())
		return nil
	}
	if m.ctx.Err() != nil {
		return nil
	}

	if prev := m.current[class]; prev != nil {
		prev.Stop()
	}

	length := spec.Length
	if m.maxLength > 0 && length > m.maxLength {
		length = m.maxLength
	}

	t := NewTone(id, class, length, m.volume*spec.Volume, m.provider, m.logger)
	m.current[class] = t
	onFinish := m.onFinish

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		t.Run(m.ctx)
		m.finished(t)
		if onFinish != nil {
			onFinish(class, id, t.Result())
		}
	}()

	return t
}

// Stop stops the tone currently playing in class, if any.
func (m *Manager) Stop(class Class) {
	m.mu.Lock()
	t := m.current[class]
	m.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// Current returns the tone most recently started in class while it runs.
func (m *Manager) Current(class Class) *Tone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[class]
}

// Close stops all tones and waits for their resources to be released.
func (m *Manager) Close() {
	// Play adds to wg under mu, so no Add can follow this cancel.
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
	m.logger.Debug("tone manager closed")
}

// finished forgets t if it is still the current tone of its class.
func (m *Manager) finished(t *Tone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current[t.class] == t {
		delete(m.current, t.class)
	}
}
