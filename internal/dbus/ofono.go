package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/telnotify/internal/indicator"
	"github.com/jmylchreest/telnotify/internal/model"
)

// oFono service and interface names.
const (
	OfonoService            = "org.ofono"
	OfonoManagerInterface   = "org.ofono.Manager"
	OfonoModemInterface     = "org.ofono.Modem"
	OfonoMessageWaiting     = "org.ofono.MessageWaiting"
	OfonoCallForwarding     = "org.ofono.CallForwarding"
	OfonoVoiceCall          = "org.ofono.VoiceCall"
	OfonoTextTelephony      = "org.ofono.TextTelephony"
	ofonoPropertyChanged    = "PropertyChanged"
	ofonoDisconnectReason   = "DisconnectReason"
	ofonoModemAdded         = "ModemAdded"
	ofonoModemRemoved       = "ModemRemoved"
	ofonoRootPath           = dbus.ObjectPath("/")
	ofonoSignalChannelDepth = 64
)

// ErrOfonoNotRunning is returned by ConnectOfono when the system bus is up
// but nothing owns the oFono service name.
var ErrOfonoNotRunning = errors.New("oFono is not running")

// Poster accepts events for dispatch.
type Poster interface {
	Post(ev *model.Event) error
}

// modemInfo is one entry of org.ofono.Manager.GetModems.
type modemInfo struct {
	Path  dbus.ObjectPath
	Props map[string]dbus.Variant
}

// forwardingState holds the two CallForwarding properties that together
// decide the CFI indicator of one modem.
type forwardingState struct {
	flagOnSim     bool
	unconditional bool
}

func (f forwardingState) visible() bool {
	return f.flagOnSim || f.unconditional
}

// OfonoSource turns oFono signals on the system bus into radio events.
// It also serves as the subscription provider, slot resolver, and listener
// registrar for the reconciler: each oFono modem is one subscription.
type OfonoSource struct {
	conn   *dbus.Conn
	poster Poster
	logger *slog.Logger

	mu        sync.Mutex
	subs      map[dbus.ObjectPath]model.SubscriptionID
	paths     map[model.SubscriptionID]dbus.ObjectPath
	nextSub   model.SubscriptionID
	listening map[dbus.ObjectPath]bool
	forwards  map[dbus.ObjectPath]forwardingState

	signals chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewOfonoSource creates a source on conn posting events to poster.
func NewOfonoSource(conn *dbus.Conn, poster Poster, logger *slog.Logger) *OfonoSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfonoSource{
		conn:      conn,
		poster:    poster,
		logger:    logger,
		subs:      make(map[dbus.ObjectPath]model.SubscriptionID),
		paths:     make(map[model.SubscriptionID]dbus.ObjectPath),
		listening: make(map[dbus.ObjectPath]bool),
		forwards:  make(map[dbus.ObjectPath]forwardingState),
	}
}

// ConnectOfono creates a source on the system bus. It fails with
// ErrOfonoNotRunning when org.ofono has no owner.
func ConnectOfono(poster Poster, logger *slog.Logger) (*OfonoSource, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	var owned bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, OfonoService).Store(&owned)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", OfonoService, err)
	}
	if !owned {
		return nil, ErrOfonoNotRunning
	}
	return NewOfonoSource(conn, poster, logger), nil
}

// globalMatches are the signals watched regardless of registrations.
func globalMatches() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{dbus.WithMatchSender(OfonoService), dbus.WithMatchInterface(OfonoManagerInterface)},
		{dbus.WithMatchSender(OfonoService), dbus.WithMatchInterface(OfonoModemInterface), dbus.WithMatchMember(ofonoPropertyChanged)},
		{dbus.WithMatchSender(OfonoService), dbus.WithMatchInterface(OfonoVoiceCall)},
	}
}

// Start subscribes to oFono signals and begins translating them.
func (s *OfonoSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	for _, m := range globalMatches() {
		if err := s.conn.AddMatchSignal(m...); err != nil {
			return fmt.Errorf("failed to add oFono match: %w", err)
		}
	}

	s.mu.Lock()
	s.signals = make(chan *dbus.Signal, ofonoSignalChannelDepth)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	s.conn.Signal(s.signals)
	go s.loop(ctx)

	s.logger.Info("oFono source started")
	return nil
}

// Stop stops translating signals.
func (s *OfonoSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
	s.conn.RemoveSignal(s.signals)
	for _, m := range globalMatches() {
		_ = s.conn.RemoveMatchSignal(m...)
	}
	s.logger.Info("oFono source stopped")
}

func (s *OfonoSource) loop(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			s.handleSignal(sig)
		}
	}
}

// handleSignal posts the event sig maps to, if any.
func (s *OfonoSource) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	modem := modemPath(sig.Path)
	s.mu.Lock()
	sub, known := s.subs[modem]
	listening := s.listening[modem]
	s.mu.Unlock()

	kind, payload, ok := translateSignal(sig)
	if !ok {
		return
	}

	switch kind {
	case model.EventSubscriptionsChanged:
		sub = 0
	case model.EventIndicatorChanged, model.EventTTYMode:
		// Only delivered to registered listeners
		if !listening {
			return
		}
	default:
		if !known {
			s.logger.Debug("signal from unknown modem", "path", string(sig.Path), "name", sig.Name)
			return
		}
	}

	if p, ok := payload.(model.IndicatorPayload); ok && p.Kind == model.IndicatorCFI {
		name, _ := bodyString(sig.Body, 0)
		p.Visible = s.updateForwarding(modem, name, p.Visible)
		payload = p
	}

	s.post(kind, sub, payload)
}

// updateForwarding records one CallForwarding property of modem and
// returns the resulting CFI visibility.
func (s *OfonoSource) updateForwarding(modem dbus.ObjectPath, name string, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.forwards[modem]
	switch name {
	case "ForwardingFlagOnSim":
		f.flagOnSim = on
	case "VoiceUnconditional":
		f.unconditional = on
	}
	s.forwards[modem] = f
	return f.visible()
}

func (s *OfonoSource) post(kind model.EventKind, sub model.SubscriptionID, payload any) {
	ev, err := model.NewEvent(kind, sub, payload)
	if err != nil {
		s.logger.Warn("failed to create event", "kind", string(kind), "error", err)
		return
	}
	if err := s.poster.Post(ev); err != nil {
		s.logger.Warn("failed to post event", "kind", string(kind), "sub_id", int(sub), "error", err)
	}
}

// ListActive returns the subscriptions of all online modems.
func (s *OfonoSource) ListActive() ([]model.SubscriptionID, error) {
	var modems []modemInfo
	err := s.conn.Object(OfonoService, ofonoRootPath).
		Call(OfonoManagerInterface+".GetModems", 0).
		Store(&modems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", indicator.ErrUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]model.SubscriptionID, 0, len(modems))
	for _, m := range modems {
		if !boolProp(m.Props, "Online") {
			continue
		}
		active = append(active, s.subscriptionFor(m.Path))
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active, nil
}

// subscriptionFor returns the stable ID for path, allocating one if new.
// Callers hold s.mu.
func (s *OfonoSource) subscriptionFor(path dbus.ObjectPath) model.SubscriptionID {
	if sub, ok := s.subs[path]; ok {
		return sub
	}
	s.nextSub++
	s.subs[path] = s.nextSub
	s.paths[s.nextSub] = path
	return s.nextSub
}

// SlotOf returns the SIM slot encoded in the modem path (e.g. /ril_1).
func (s *OfonoSource) SlotOf(sub model.SubscriptionID) model.SlotIndex {
	s.mu.Lock()
	path, ok := s.paths[sub]
	s.mu.Unlock()
	if !ok {
		return model.InvalidSlot
	}
	return slotFromPath(path)
}

// Register starts delivering indicator signals for sub. The current
// indicator values are fetched and posted as the listener's first callbacks.
func (s *OfonoSource) Register(sub model.SubscriptionID) (indicator.Registration, error) {
	s.mu.Lock()
	path, ok := s.paths[sub]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown subscription %d", sub)
	}

	opts := registrationMatch(path)
	if err := s.conn.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	s.mu.Lock()
	s.listening[path] = true
	s.mu.Unlock()

	go s.seedIndicators(sub, path)

	return &ofonoRegistration{source: s, path: path}, nil
}

func registrationMatch(path dbus.ObjectPath) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchSender(OfonoService),
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchMember(ofonoPropertyChanged),
	}
}

// seedIndicators posts the current MWI and CFI values for path.
func (s *OfonoSource) seedIndicators(sub model.SubscriptionID, path dbus.ObjectPath) {
	obj := s.conn.Object(OfonoService, path)

	var mwi map[string]dbus.Variant
	if err := obj.Call(OfonoMessageWaiting+".GetProperties", 0).Store(&mwi); err == nil {
		s.post(model.EventIndicatorChanged, sub, model.IndicatorPayload{
			Kind:    model.IndicatorMWI,
			Visible: boolProp(mwi, "VoicemailWaiting"),
		})
	} else {
		s.logger.Debug("no message waiting properties", "path", string(path), "error", err)
	}

	var cf map[string]dbus.Variant
	if err := obj.Call(OfonoCallForwarding+".GetProperties", 0).Store(&cf); err == nil {
		f := forwardingState{
			flagOnSim:     boolProp(cf, "ForwardingFlagOnSim"),
			unconditional: stringProp(cf, "VoiceUnconditional") != "",
		}
		s.mu.Lock()
		s.forwards[path] = f
		s.mu.Unlock()
		s.post(model.EventIndicatorChanged, sub, model.IndicatorPayload{
			Kind:    model.IndicatorCFI,
			Visible: f.visible(),
		})
	} else {
		s.logger.Debug("no call forwarding properties", "path", string(path), "error", err)
	}
}

// ofonoRegistration is the listener handle for one modem.
type ofonoRegistration struct {
	source *OfonoSource
	path   dbus.ObjectPath
	once   sync.Once
}

func (r *ofonoRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		r.source.mu.Lock()
		delete(r.source.listening, r.path)
		delete(r.source.forwards, r.path)
		r.source.mu.Unlock()
		err = r.source.conn.RemoveMatchSignal(registrationMatch(r.path)...)
	})
	return err
}

// translateSignal maps an oFono signal to an event kind and payload.
func translateSignal(sig *dbus.Signal) (model.EventKind, any, bool) {
	iface, member := splitSignalName(sig.Name)

	switch {
	case iface == OfonoManagerInterface && (member == ofonoModemAdded || member == ofonoModemRemoved):
		return model.EventSubscriptionsChanged, nil, true

	case iface == OfonoVoiceCall && member == ofonoDisconnectReason:
		reason, ok := bodyString(sig.Body, 0)
		if !ok {
			return "", nil, false
		}
		return model.EventDisconnect, model.DisconnectPayload{Cause: causeFromOfono(reason)}, true
	}

	if member != ofonoPropertyChanged {
		return "", nil, false
	}
	name, ok := bodyString(sig.Body, 0)
	if !ok || len(sig.Body) < 2 {
		return "", nil, false
	}
	value, ok := sig.Body[1].(dbus.Variant)
	if !ok {
		return "", nil, false
	}

	switch iface {
	case OfonoModemInterface:
		if name == "Online" || name == "Powered" {
			return model.EventSubscriptionsChanged, nil, true
		}
	case OfonoMessageWaiting:
		if name == "VoicemailWaiting" {
			visible, _ := value.Value().(bool)
			return model.EventIndicatorChanged, model.IndicatorPayload{Kind: model.IndicatorMWI, Visible: visible}, true
		}
	case OfonoCallForwarding:
		switch name {
		case "ForwardingFlagOnSim":
			visible, _ := value.Value().(bool)
			return model.EventIndicatorChanged, model.IndicatorPayload{Kind: model.IndicatorCFI, Visible: visible}, true
		case "VoiceUnconditional":
			target, _ := value.Value().(string)
			return model.EventIndicatorChanged, model.IndicatorPayload{Kind: model.IndicatorCFI, Visible: target != ""}, true
		}
	case OfonoTextTelephony:
		if name == "Enabled" {
			mode := model.TTYModeOff
			if on, _ := value.Value().(bool); on {
				mode = model.TTYModeFull
			}
			return model.EventTTYMode, model.TTYModePayload{Mode: mode}, true
		}
	case OfonoVoiceCall:
		if name == "Information" {
			text, _ := value.Value().(string)
			return model.EventDisplayInfo, model.DisplayInfoPayload{Text: text}, true
		}
	}
	return "", nil, false
}

// causeFromOfono maps a VoiceCall DisconnectReason to a cause.
func causeFromOfono(reason string) model.DisconnectCause {
	switch reason {
	case "local":
		return model.CauseLocal
	case "remote":
		return model.CauseNormal
	case "network":
		return model.CauseCallDrop
	default:
		return model.CauseErrorUnspecified
	}
}

// splitSignalName splits "iface.Member" at the last dot.
func splitSignalName(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// modemPath returns the modem object a path belongs to: /ril_0/voicecall01
// belongs to /ril_0.
func modemPath(path dbus.ObjectPath) dbus.ObjectPath {
	p := string(path)
	if len(p) <= 1 {
		return path
	}
	if i := strings.Index(p[1:], "/"); i >= 0 {
		return dbus.ObjectPath(p[:i+1])
	}
	return path
}

// slotFromPath parses the trailing digits of a modem path.
func slotFromPath(path dbus.ObjectPath) model.SlotIndex {
	p := string(path)
	end := len(p)
	start := end
	for start > 0 && p[start-1] >= '0' && p[start-1] <= '9' {
		start--
	}
	if start == end {
		return model.InvalidSlot
	}
	n, err := strconv.Atoi(p[start:end])
	if err != nil {
		return model.InvalidSlot
	}
	return model.SlotIndex(n)
}

func bodyString(body []any, i int) (string, bool) {
	if i >= len(body) {
		return "", false
	}
	s, ok := body[i].(string)
	return s, ok
}

func boolProp(props map[string]dbus.Variant, name string) bool {
	if v, ok := props[name]; ok {
		b, _ := v.Value().(bool)
		return b
	}
	return false
}

func stringProp(props map[string]dbus.Variant, name string) string {
	if v, ok := props[name]; ok {
		s, _ := v.Value().(string)
		return s
	}
	return ""
}
