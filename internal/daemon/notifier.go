package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/telnotify/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

func (l NotificationLevel) urgency() byte {
	switch l {
	case NotificationLevelInfo:
		return dbus.UrgencyLow
	case NotificationLevelError:
		return dbus.UrgencyCritical
	default:
		return dbus.UrgencyNormal
	}
}

// NotifyFunc delivers one desktop notification.
type NotifyFunc func(summary, body string, urgency byte) error

// InternalNotifier tells the user about the daemon itself: config reloads,
// audio failures, lost event sources. Repeats of the same key within
// minInterval are dropped.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	notify NotifyFunc

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
	now     func() time.Time
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
		now:            time.Now,
	}
}

// SetNotifyFunc sets the delivery function, typically Notifier.Notify.
func (n *InternalNotifier) SetNotifyFunc(fn NotifyFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notify = fn
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications sharing a key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends an internal notification unless rate-limited.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}
	if n.notify == nil {
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", int(level))
	if err := n.notify(summary, body, level.urgency()); err != nil {
		n.logger.Warn("failed to send internal notification", "key", key, "error", err)
	}
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		"telnotifyd configuration has been reloaded.", NotificationLevelInfo)
}

// NotifyConfigError reports a config file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), NotificationLevelWarning)
}

// NotifyQuietChanged reports a quiet mode change.
func (n *InternalNotifier) NotifyQuietChanged(enabled bool, source string) {
	summary := "Quiet Mode Disabled"
	body := "Call tones and indicator alerts are back on."
	if enabled {
		summary = "Quiet Mode Enabled"
		body = "Call tones are muted and indicators update silently."
	}
	if source != "" {
		body += " (" + source + ")"
	}
	n.Notify("quiet-change", summary, body, NotificationLevelInfo)
}

// NotifyAudioError reports a tone that could not be played.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "Audio Error",
		"Failed to play call tone: "+err.Error(), NotificationLevelWarning)
}

// NotifySourceError reports a radio event source that failed to start.
func (n *InternalNotifier) NotifySourceError(source string, err error) {
	n.Notify("source-error:"+source, "Telephony Events Unavailable",
		source+": "+err.Error(), NotificationLevelError)
}
