package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/telnotify/internal/indicator"
	"github.com/jmylchreest/telnotify/internal/metrics"
	"github.com/jmylchreest/telnotify/internal/model"
	"github.com/jmylchreest/telnotify/internal/store"
	"github.com/jmylchreest/telnotify/internal/tone"
)

// ErrQueueFull is returned by Post when the event queue has no room.
var ErrQueueFull = errors.New("event queue full")

// BannerRenderer shows short-lived text banners.
type BannerRenderer interface {
	ShowTransient(text string, d time.Duration) error
	Dismiss() error
}

// TonePlayer plays and stops tones by class.
type TonePlayer interface {
	Play(class tone.Class, id model.ToneID) *tone.Tone
	Stop(class tone.Class)
}

// QuietSource reports whether quiet mode is on.
type QuietSource interface {
	Quiet() bool
}

// StatePublisher persists indicator snapshots for the CLI.
type StatePublisher interface {
	PublishIndicators(states []model.IndicatorState, kind model.EventKind) error
}

// EventRecorder keeps a history of dispatched events.
type EventRecorder interface {
	Append(e store.JournalEntry) error
}

// Options tunes the dispatcher. Zero durations fall back to the defaults.
type Options struct {
	QueueSize           int
	DisplayInfoDuration time.Duration
	StatusDuration      time.Duration
}

const (
	defaultQueueSize           = 64
	defaultDisplayInfoDuration = 2 * time.Second
	defaultStatusDuration      = 3 * time.Second
)

// Dispatcher runs every radio event through its handler on a single
// goroutine, in arrival order. The indicator registry is only touched from
// that goroutine.
type Dispatcher struct {
	queue      chan *model.Event
	reconciler *indicator.Reconciler
	tones      TonePlayer
	banners    BannerRenderer
	quiet      QuietSource
	state      StatePublisher
	metrics    *metrics.Metrics
	journal    EventRecorder
	logger     *slog.Logger

	mu   sync.RWMutex
	opts Options

	// Set while the last banner shown came from display-info.
	displayInfoUp bool
}

// NewDispatcher creates a dispatcher. tones, banners, quiet, state and m
// may be nil.
func NewDispatcher(
	reconciler *indicator.Reconciler,
	tones TonePlayer,
	banners BannerRenderer,
	quiet QuietSource,
	state StatePublisher,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	opts = withDefaults(opts)
	return &Dispatcher{
		queue:      make(chan *model.Event, opts.QueueSize),
		reconciler: reconciler,
		tones:      tones,
		banners:    banners,
		quiet:      quiet,
		state:      state,
		metrics:    m,
		logger:     logger,
		opts:       opts,
	}
}

func withDefaults(opts Options) Options {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.DisplayInfoDuration <= 0 {
		opts.DisplayInfoDuration = defaultDisplayInfoDuration
	}
	if opts.StatusDuration <= 0 {
		opts.StatusDuration = defaultStatusDuration
	}
	return opts
}

// SetOptions applies new banner durations. The queue size is fixed at
// construction.
func (d *Dispatcher) SetOptions(opts Options) {
	d.mu.Lock()
	defer d.mu.Unlock()
	opts = withDefaults(opts)
	opts.QueueSize = d.opts.QueueSize
	d.opts = opts
}

// SetJournal sets where handled events are recorded. Call before Run.
func (d *Dispatcher) SetJournal(j EventRecorder) {
	d.journal = j
}

func (d *Dispatcher) options() Options {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.opts
}

// Post enqueues ev without blocking. A full queue drops the event.
func (d *Dispatcher) Post(ev *model.Event) error {
	if ev == nil {
		return nil
	}
	select {
	case d.queue <- ev:
		return nil
	default:
		d.logger.Warn("event queue full, dropping event", "event_id", ev.ID, "kind", string(ev.Kind), "sub_id", int(ev.SubID))
		d.metrics.EventDropped("queue_full")
		return ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run performs an initial full refresh, then handles events until ctx is
// done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.reconcile(model.FullRefresh, model.EventSubscriptionsChanged)

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("dispatcher stopped", "pending", len(d.queue))
			return
		case ev := <-d.queue:
			d.Handle(ev)
		}
	}
}

// Handle runs the handler for ev synchronously. Run calls it for each
// queued event; it is exported for callers that drive the loop themselves.
func (d *Dispatcher) Handle(ev *model.Event) {
	start := time.Now()
	log := d.logger.With("event_id", ev.ID, "kind", string(ev.Kind), "sub_id", int(ev.SubID))

	var handled bool
	switch ev.Kind {
	case model.EventIndicatorChanged:
		handled = d.handleIndicator(ev, log)
	case model.EventSubscriptionsChanged:
		d.reconcile(model.FullRefresh, ev.Kind)
		handled = true
	case model.EventDisconnect:
		handled = d.handleDisconnect(ev, log)
	case model.EventDisplayInfo:
		handled = d.handleDisplayInfo(ev, log)
	case model.EventSignalInfo:
		handled = d.handleSignalInfo(ev, log)
	case model.EventTTYMode:
		handled = d.handleTTYMode(ev, log)
	case model.EventSuppServiceFailed:
		handled = d.handleSuppService(ev, log)
	default:
		log.Warn("unknown event kind, dropping")
	}

	d.record(ev, handled)
	if !handled {
		d.metrics.EventDropped("invalid")
		return
	}
	d.metrics.ObserveEvent(string(ev.Kind), time.Since(start))
}

func (d *Dispatcher) record(ev *model.Event, handled bool) {
	if d.journal == nil {
		return
	}
	outcome := "handled"
	if !handled {
		outcome = "dropped"
	}
	err := d.journal.Append(store.JournalEntry{
		ID:        ev.ID,
		Kind:      string(ev.Kind),
		SubID:     int(ev.SubID),
		Timestamp: ev.Received.Unix(),
		Detail:    describePayload(ev.Payload),
		Outcome:   outcome,
	})
	if err != nil {
		d.logger.Warn("failed to record event", "event_id", ev.ID, "error", err)
	}
}

// describePayload renders a payload in the key=value form accepted by
// model.ParseEvent.
func describePayload(payload any) string {
	switch p := payload.(type) {
	case model.DisconnectPayload:
		return "cause=" + p.Cause.String()
	case model.DisplayInfoPayload:
		return fmt.Sprintf("text=%q", p.Text)
	case model.SignalInfoPayload:
		if !p.Present {
			return "tone=none"
		}
		return "tone=" + p.Tone.String()
	case model.IndicatorPayload:
		return fmt.Sprintf("kind=%s visible=%t", p.Kind, p.Visible)
	case model.TTYModePayload:
		return "mode=" + p.Mode.String()
	case model.SuppServicePayload:
		return "service=" + p.Service.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", p)
	}
}

func (d *Dispatcher) isQuiet() bool {
	return d.quiet != nil && d.quiet.Quiet()
}

func (d *Dispatcher) handleIndicator(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.IndicatorPayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}

	registry := d.reconciler.Registry()
	if !registry.IsTracked(ev.SubID) {
		log.Warn("indicator for untracked subscription, dropping", "kind", p.Kind.String())
		return false
	}
	registry.Set(ev.SubID, p.Kind, p.Visible)

	reason := model.NetworkUpdate(ev.SubID, p.Kind)
	if d.isQuiet() {
		reason = model.FullRefresh
	}
	d.reconcile(reason, ev.Kind)
	return true
}

// reconcile runs one pass and publishes the resulting snapshot.
func (d *Dispatcher) reconcile(reason model.UpdateReason, kind model.EventKind) {
	res := d.reconciler.Reconcile(reason)
	registry := d.reconciler.Registry()

	d.metrics.Reconciled(reason.String(), res.Unavailable, len(res.Stale), len(res.Registered), registry.TrackedCount())

	if d.state == nil {
		return
	}
	if err := d.state.PublishIndicators(registry.Snapshot(d.reconciler.SlotOf), kind); err != nil {
		d.logger.Warn("failed to publish indicator state", "error", err)
	}
}

func (d *Dispatcher) handleDisconnect(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.DisconnectPayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}

	if d.displayInfoUp && d.banners != nil {
		if err := d.banners.Dismiss(); err != nil {
			log.Warn("failed to dismiss display info", "error", err)
		}
		d.displayInfoUp = false
	}

	if d.tones != nil {
		d.tones.Stop(tone.ClassSignalInfo)
	}

	id := tone.ForDisconnect(p.Cause)
	if id == model.ToneNone {
		log.Debug("no tone for disconnect cause", "cause", p.Cause.String())
		return true
	}
	d.playTone(tone.ClassInCall, id, log)
	return true
}

func (d *Dispatcher) playTone(class tone.Class, id model.ToneID, log *slog.Logger) {
	if d.tones == nil {
		return
	}
	if d.isQuiet() {
		log.Debug("quiet mode, skipping tone", "tone", id.String())
		return
	}
	d.tones.Play(class, id)
}

func (d *Dispatcher) handleDisplayInfo(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.DisplayInfoPayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}
	if p.Text == "" {
		log.Debug("empty display info, dropping")
		return false
	}

	if d.showBanner(ev.Kind, p.Text, d.options().DisplayInfoDuration, log) {
		d.displayInfoUp = true
	}
	return true
}

func (d *Dispatcher) handleSignalInfo(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.SignalInfoPayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}

	if !p.Present || p.Tone == model.ToneSignalOff || p.Tone == model.ToneNone {
		if d.tones != nil {
			d.tones.Stop(tone.ClassSignalInfo)
		}
		return true
	}
	d.playTone(tone.ClassSignalInfo, p.Tone, log)
	return true
}

func (d *Dispatcher) handleTTYMode(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.TTYModePayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}

	text, ok := ttyModeText[p.Mode]
	if !ok {
		log.Warn("unknown TTY mode, dropping", "mode", p.Mode.String())
		return false
	}
	d.showBanner(ev.Kind, text, d.options().StatusDuration, log)
	return true
}

func (d *Dispatcher) handleSuppService(ev *model.Event, log *slog.Logger) bool {
	p, ok := ev.Payload.(model.SuppServicePayload)
	if !ok {
		log.Warn("unexpected payload, dropping", "payload", ev.Payload)
		return false
	}

	text, ok := suppServiceText[p.Service]
	if !ok {
		log.Warn("unknown supplementary service, dropping", "service", p.Service.String())
		return false
	}
	d.showBanner(ev.Kind, text, d.options().StatusDuration, log)
	return true
}

// showBanner reports whether the banner was shown.
func (d *Dispatcher) showBanner(kind model.EventKind, text string, dur time.Duration, log *slog.Logger) bool {
	if d.banners == nil {
		return false
	}
	if err := d.banners.ShowTransient(text, dur); err != nil {
		log.Warn("failed to show banner", "error", err)
		return false
	}
	d.displayInfoUp = false
	d.metrics.BannerShown(string(kind))
	return true
}

// QuietChanged stops any playing tones when quiet mode turns on.
func (d *Dispatcher) QuietChanged(enabled bool) {
	if !enabled || d.tones == nil {
		return
	}
	d.tones.Stop(tone.ClassInCall)
	d.tones.Stop(tone.ClassSignalInfo)
}

var ttyModeText = map[model.TTYMode]string{
	model.TTYModeOff:  "TTY mode off",
	model.TTYModeFull: "TTY full mode",
	model.TTYModeHCO:  "TTY HCO mode",
	model.TTYModeVCO:  "TTY VCO mode",
}

var suppServiceText = map[model.SuppService]string{
	model.SuppServiceSwitch:     "Can't switch calls",
	model.SuppServiceSeparate:   "Can't separate call",
	model.SuppServiceTransfer:   "Can't transfer call",
	model.SuppServiceConference: "Can't start conference call",
	model.SuppServiceReject:     "Can't reject call",
	model.SuppServiceHangup:     "Can't release call",
	model.SuppServiceHold:       "Can't hold call",
	model.SuppServiceResume:     "Can't resume call",
}
