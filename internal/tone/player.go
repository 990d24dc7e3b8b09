package tone

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/telnotify/internal/model"
)

// Handle identifies an acquired audio resource.
type Handle int64

// AudioProvider hands out exclusive audio resources for tone playback.
type AudioProvider interface {
	Acquire(class Class, volume float64) (Handle, error)
	StartTone(h Handle, id model.ToneID) error
	StopTone(h Handle)
	Release(h Handle)
}

// State is the playback state of a Tone.
type State int32

const (
	// StateOff means the tone is not playing: not yet started, or completed.
	StateOff State = iota
	// StateOn means the tone is playing.
	StateOn
	// StateStopped means the tone was stopped before it completed.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result says how a tone task ended.
type Result int

const (
	ResultPending Result = iota
	ResultCompleted
	ResultStopped
	ResultFailed
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultPending:
		return "pending"
	case ResultCompleted:
		return "completed"
	case ResultStopped:
		return "stopped"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tone is one playback task. It owns its audio resource for its whole
// lifetime and releases it before Done is closed.
type Tone struct {
	id       model.ToneID
	class    Class
	length   time.Duration
	volume   float64
	provider AudioProvider
	logger   *slog.Logger

	state  atomic.Int32
	result atomic.Int32

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewTone creates a tone task that plays id for length at volume.
func NewTone(id model.ToneID, class Class, length time.Duration, volume float64, provider AudioProvider, logger *slog.Logger) *Tone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tone{
		id:       id,
		class:    class,
		length:   length,
		volume:   volume,
		provider: provider,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the tone being played.
func (t *Tone) ID() model.ToneID { return t.id }

// Class returns the tone's class.
func (t *Tone) Class() Class { return t.class }

// State returns the current playback state.
func (t *Tone) State() State { return State(t.state.Load()) }

// Result returns how the task ended, or ResultPending while it runs.
func (t *Tone) Result() Result { return Result(t.result.Load()) }

// Done is closed once the task has released its resource.
func (t *Tone) Done() <-chan struct{} { return t.done }

// Stop asks the tone to stop. It does not wait; use Done for that.
func (t *Tone) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Start runs the tone on its own goroutine.
func (t *Tone) Start(ctx context.Context) {
	go t.Run(ctx)
}

// Run plays the tone and blocks until it completes, is stopped, or ctx
// is cancelled.
func (t *Tone) Run(ctx context.Context) {
	defer close(t.done)

	h, err := t.provider.Acquire(t.class, t.volume)
	if err != nil {
		t.logger.Warn("failed to acquire audio resource, skipping tone",
			"tone", t.id.String(), "class", t.class.String(), "error", err)
		t.result.Store(int32(ResultFailed))
		return
	}

	select {
	case <-t.stopCh:
		t.provider.Release(h)
		t.state.Store(int32(StateStopped))
		t.result.Store(int32(ResultStopped))
		return
	default:
	}

	t.state.Store(int32(StateOn))
	if err := t.provider.StartTone(h, t.id); err != nil {
		t.logger.Warn("failed to start tone", "tone", t.id.String(), "error", err)
		t.provider.Release(h)
		t.state.Store(int32(StateOff))
		t.result.Store(int32(ResultFailed))
		return
	}
	t.logger.Debug("tone started", "tone", t.id.String(), "class", t.class.String(), "length", t.length)

	timer := time.NewTimer(t.length + TimeoutBuffer)
	defer timer.Stop()

	final, result := StateOff, ResultCompleted
	select {
	case <-timer.C:
	case <-t.stopCh:
		final, result = StateStopped, ResultStopped
		t.state.Store(int32(StateStopped))
	case <-ctx.Done():
		final, result = StateStopped, ResultStopped
		t.state.Store(int32(StateStopped))
	}

	t.provider.StopTone(h)
	t.provider.Release(h)
	t.state.Store(int32(final))
	t.result.Store(int32(result))
	t.logger.Debug("tone finished", "tone", t.id.String(), "result", result.String())
}
