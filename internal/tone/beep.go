package tone

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/jmylchreest/telnotify/internal/model"
)

// ErrUnknownHandle is returned for handles that were never acquired or
// were already released.
var ErrUnknownHandle = errors.New("unknown audio handle")

// BeepProvider is an AudioProvider that synthesises tones and plays them
// through the beep speaker.
type BeepProvider struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Whether speaker has been initialized
	initialized bool

	// Sample rate for the speaker
	sampleRate beep.SampleRate

	nextHandle Handle
	voices     map[Handle]*voice
}

// voice is the state behind one acquired handle.
type voice struct {
	class  Class
	volume float64
	ctrl   *beep.Ctrl
}

// NewBeepProvider creates a provider. The speaker is initialised lazily on
// first Acquire.
func NewBeepProvider(logger *slog.Logger) *BeepProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &BeepProvider{
		logger:     logger,
		sampleRate: beep.SampleRate(44100),
		voices:     make(map[Handle]*voice),
	}
}

// Acquire reserves a voice for class at volume (0.0 to 1.0).
func (p *BeepProvider) Acquire(class Class, volume float64) (Handle, error) {
	if err := p.ensureInitialized(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextHandle++
	h := p.nextHandle
	p.voices[h] = &voice{class: class, volume: min(max(volume, 0), 1)}
	return h, nil
}

// StartTone synthesises id and starts it on the speaker.
func (p *BeepProvider) StartTone(h Handle, id model.ToneID) error {
	spec, ok := Lookup(id)
	if !ok {
		return fmt.Errorf("no spec for tone %s", id)
	}

	p.mu.Lock()
	v, ok := p.voices[h]
	sampleRate := p.sampleRate
	p.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}

	streamer, err := Synthesize(spec, sampleRate)
	if err != nil {
		return err
	}

	if v.volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToExponent(v.volume),
			Silent:   v.volume == 0,
		}
	}

	ctrl := &beep.Ctrl{Streamer: streamer}
	p.mu.Lock()
	v.ctrl = ctrl
	p.mu.Unlock()

	speaker.Play(ctrl)
	return nil
}

// StopTone silences the voice behind h.
func (p *BeepProvider) StopTone(h Handle) {
	p.mu.Lock()
	v, ok := p.voices[h]
	p.mu.Unlock()
	if !ok || v.ctrl == nil {
		return
	}

	speaker.Lock()
	v.ctrl.Streamer = nil
	speaker.Unlock()
}

// Release stops and forgets h.
func (p *BeepProvider) Release(h Handle) {
	p.StopTone(h)

	p.mu.Lock()
	delete(p.voices, h)
	p.mu.Unlock()
}

// Active returns the number of voices currently acquired.
func (p *BeepProvider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voices)
}

// Close stops all playback and releases the speaker.
func (p *BeepProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.voices = make(map[Handle]*voice)
	p.logger.Debug("audio provider closed")
}

// ensureInitialized initializes the speaker if not already done.
func (p *BeepProvider) ensureInitialized() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// Use a reasonable buffer size for low latency
	bufferSize := p.sampleRate.N(time.Millisecond * 100)

	if err := speaker.Init(p.sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", p.sampleRate)
	return nil
}

// Synthesize renders spec as a finite streamer at sampleRate.
func Synthesize(spec Spec, sampleRate beep.SampleRate) (beep.Streamer, error) {
	cycle := spec.cycle()
	if cycle <= 0 || spec.Length <= 0 {
		return nil, fmt.Errorf("tone has no cadence")
	}

	var parts []beep.Streamer
	for elapsed := time.Duration(0); elapsed < spec.Length; elapsed += cycle {
		for _, seg := range spec.Segments {
			on, err := mixSines(sampleRate, seg.Freqs, seg.On)
			if err != nil {
				return nil, err
			}
			parts = append(parts, on)
			if seg.Off > 0 {
				parts = append(parts, beep.Silence(sampleRate.N(seg.Off)))
			}
		}
	}

	return beep.Take(sampleRate.N(spec.Length), beep.Seq(parts...)), nil
}

// mixSines returns d worth of the given frequencies mixed at equal level.
func mixSines(sampleRate beep.SampleRate, freqs []float64, d time.Duration) (beep.Streamer, error) {
	n := sampleRate.N(d)
	if len(freqs) == 0 {
		return beep.Silence(n), nil
	}

	sines := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		s, err := generators.SineTone(sampleRate, f)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %.0fHz: %w", f, err)
		}
		sines = append(sines, s)
	}

	mixed := &effects.Gain{
		Streamer: beep.Mix(sines...),
		Gain:     1/float64(len(sines)) - 1,
	}
	return beep.Take(n, mixed), nil
}

// volumeToExponent converts a linear volume (0-1) to a base-2 exponent
// for effects.Volume.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10 // Effectively silent
	}
	return math.Log2(volume)
}
