package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/telnotify/internal/model"
)

// Backend delivers notifications to a notification server.
type Backend interface {
	Notify(n *Notification) (uint32, error)
	CloseNotification(id uint32) error
}

// busBackend talks to the session notification server.
type busBackend struct {
	obj dbus.BusObject
}

func (b *busBackend) Notify(n *Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	err := b.obj.Call(NotificationsInterface+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body,
		actions, hints, n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

func (b *busBackend) CloseNotification(id uint32) error {
	if err := b.obj.Call(NotificationsInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification %d: %w", id, err)
	}
	return nil
}

// SlotLookup maps a subscription to its SIM slot for labelling.
type SlotLookup interface {
	SlotOf(id model.SubscriptionID) model.SlotIndex
}

// NotifierOptions controls how notifications look.
type NotifierOptions struct {
	AppName string
	MWIIcon string
	CFIIcon string
}

type indicatorKey struct {
	sub  model.SubscriptionID
	kind model.IndicatorKind
}

// Notifier renders indicators and banners as desktop notifications.
// Each (subscription, kind) owns one notification that is replaced in
// place; there is at most one banner at a time.
type Notifier struct {
	mu      sync.Mutex
	backend Backend
	conn    *dbus.Conn
	logger  *slog.Logger
	opts    NotifierOptions
	slots   SlotLookup

	indicators map[indicatorKey]uint32
	banner     uint32
}

// NewNotifier creates a Notifier delivering through backend.
func NewNotifier(backend Backend, opts NotifierOptions, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AppName == "" {
		opts.AppName = "telnotify"
	}
	return &Notifier{
		backend:    backend,
		logger:     logger,
		opts:       opts,
		indicators: make(map[indicatorKey]uint32),
	}
}

// ConnectNotifier creates a Notifier on the session bus.
func ConnectNotifier(opts NotifierOptions, logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	backend := &busBackend{obj: conn.Object(NotificationsBusName, NotificationsPath)}
	n := NewNotifier(backend, opts, logger)
	n.conn = conn
	return n, nil
}

// SetSlotLookup sets the resolver used to label notifications by SIM slot.
func (n *Notifier) SetSlotLookup(slots SlotLookup) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.slots = slots
}

// SetOptions replaces the notification options. Existing notifications keep
// their look until next updated.
func (n *Notifier) SetOptions(opts NotifierOptions) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if opts.AppName == "" {
		opts.AppName = n.opts.AppName
	}
	n.opts = opts
}

// ShowIndicator shows or updates the indicator notification for (sub, kind).
// A silent update replaces the notification without sound or pop.
func (n *Notifier) ShowIndicator(sub model.SubscriptionID, kind model.IndicatorKind, visible, silent bool) error {
	if !visible {
		return n.HideIndicator(sub, kind)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	key := indicatorKey{sub: sub, kind: kind}
	var h hints
	if silent {
		h = newHints(UrgencyLow, indicatorCategory(kind)).flag("suppress-sound")
	} else {
		h = newHints(UrgencyNormal, indicatorCategory(kind)).str("sound-name", "message-new-instant")
	}
	h.flag("resident")

	notif := &Notification{
		AppName:       n.opts.AppName,
		ReplacesID:    n.indicators[key],
		AppIcon:       n.indicatorIcon(kind),
		Summary:       indicatorSummary(kind),
		Body:          n.subscriptionLabel(sub),
		Hints:         h,
		ExpireTimeout: 0,
	}

	id, err := n.backend.Notify(notif)
	if err != nil {
		return err
	}
	n.indicators[key] = id
	n.logger.Debug("indicator shown", "sub_id", int(sub), "kind", kind.String(), "id", id, "silent", silent)
	return nil
}

// HideIndicator closes the indicator notification for (sub, kind) if shown.
func (n *Notifier) HideIndicator(sub model.SubscriptionID, kind model.IndicatorKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := indicatorKey{sub: sub, kind: kind}
	id, ok := n.indicators[key]
	if !ok {
		return nil
	}
	delete(n.indicators, key)

	n.logger.Debug("indicator hidden", "sub_id", int(sub), "kind", kind.String(), "id", id)
	return n.backend.CloseNotification(id)
}

// ShowTransient shows text as a banner for d, replacing any banner already up.
func (n *Notifier) ShowTransient(text string, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	notif := &Notification{
		AppName:       n.opts.AppName,
		ReplacesID:    n.banner,
		AppIcon:       "dialog-information",
		Summary:       text,
		Hints:         newHints(UrgencyLow, "x-telnotify.info").flag("transient").flag("suppress-sound"),
		ExpireTimeout: int32(d.Milliseconds()),
	}

	id, err := n.backend.Notify(notif)
	if err != nil {
		return err
	}
	n.banner = id
	return nil
}

// Dismiss closes the current banner, if any.
func (n *Notifier) Dismiss() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.banner == 0 {
		return nil
	}
	id := n.banner
	n.banner = 0
	return n.backend.CloseNotification(id)
}

// Notify sends a one-off notification about the daemon itself.
func (n *Notifier) Notify(summary, body string, urgency byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := n.backend.Notify(&Notification{
		AppName:       n.opts.AppName,
		AppIcon:       "dialog-warning",
		Summary:       summary,
		Body:          body,
		Hints:         newHints(urgency, "x-telnotify.daemon"),
		ExpireTimeout: -1,
	})
	return err
}

// HandleClosed forgets a notification the server closed on its own, so the
// next update creates a fresh one instead of replacing a dead ID.
func (n *Notifier) HandleClosed(id uint32, reason CloseReason) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.banner == id {
		n.banner = 0
		return
	}
	for key, nid := range n.indicators {
		if nid == id {
			delete(n.indicators, key)
			n.logger.Debug("indicator closed by server",
				"sub_id", int(key.sub), "kind", key.kind.String(), "reason", reason.String())
			return
		}
	}
}

// Start listens for NotificationClosed signals until ctx is done.
// It is a no-op for notifiers not created by ConnectNotifier.
func (n *Notifier) Start(ctx context.Context) error {
	if n.conn == nil {
		return nil
	}

	if err := n.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(NotificationsPath),
		dbus.WithMatchInterface(NotificationsInterface),
		dbus.WithMatchMember("NotificationClosed"),
	); err != nil {
		return fmt.Errorf("failed to watch NotificationClosed: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	n.conn.Signal(ch)

	go func() {
		defer n.conn.RemoveSignal(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				if sig == nil || sig.Name != NotificationsInterface+".NotificationClosed" || len(sig.Body) < 2 {
					continue
				}
				id, _ := sig.Body[0].(uint32)
				reason, _ := sig.Body[1].(uint32)
				n.HandleClosed(id, CloseReason(reason))
			}
		}
	}()
	return nil
}

// indicatorIcon returns the configured icon for kind.
func (n *Notifier) indicatorIcon(kind model.IndicatorKind) string {
	if kind == model.IndicatorCFI {
		return n.opts.CFIIcon
	}
	return n.opts.MWIIcon
}

// subscriptionLabel names sub by its SIM slot where known.
func (n *Notifier) subscriptionLabel(sub model.SubscriptionID) string {
	if n.slots != nil {
		if slot := n.slots.SlotOf(sub); slot != model.InvalidSlot {
			return fmt.Sprintf("SIM %d", int(slot)+1)
		}
	}
	return fmt.Sprintf("Subscription %d", int(sub))
}

func indicatorSummary(kind model.IndicatorKind) string {
	switch kind {
	case model.IndicatorMWI:
		return "New voicemail"
	case model.IndicatorCFI:
		return "Call forwarding is on"
	default:
		return "Telephony indicator"
	}
}

func indicatorCategory(kind model.IndicatorKind) string {
	return "x-telnotify." + kind.String()
}
