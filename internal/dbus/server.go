package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/telnotify/internal/model"
)

const (
	// InjectInterface is the telnotify control interface name.
	InjectInterface = "io.github.jmylchreest.Telnotify1"
	// InjectPath is the telnotify control object path.
	InjectPath = "/io/github/jmylchreest/Telnotify1"
	// InjectBusName is the bus name to claim.
	InjectBusName = "io.github.jmylchreest.Telnotify1"
)

// QuietHandler is called when a client changes quiet mode.
type QuietHandler func(enabled bool) error

// InjectServer exports the telnotify control interface on the session bus.
// Events injected through it are dispatched exactly like radio events, which
// makes hosts without oFono scriptable and testable.
type InjectServer struct {
	conn   *dbus.Conn
	logger *slog.Logger
	poster Poster

	mu           sync.RWMutex
	quietHandler QuietHandler
	running      bool
}

// NewInjectServer creates a new InjectServer posting to poster.
func NewInjectServer(poster Poster, logger *slog.Logger) *InjectServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &InjectServer{
		logger: logger,
		poster: poster,
	}
}

// SetQuietHandler sets the handler called by SetQuiet.
func (s *InjectServer) SetQuietHandler(handler QuietHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quietHandler = handler
}

// Start connects to the session bus and exports the control interface.
func (s *InjectServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, InjectPath, InjectInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: InjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    InjectInterface,
				Methods: injectMethods(),
				Signals: injectSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), InjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(InjectBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken (is telnotifyd already running?)", InjectBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus control server started", "interface", InjectInterface, "path", InjectPath)
	return nil
}

// Stop releases the bus name.
func (s *InjectServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(InjectBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus control server stopped")
	return nil
}

// Inject parses and dispatches one event. Returns the event ID.
// D-Bus method: Inject(sia{ss}) -> s
func (s *InjectServer) Inject(kind string, sub int32, args map[string]string) (string, *dbus.Error) {
	s.logger.Debug("Inject called", "kind", kind, "sub_id", sub, "args", args)

	ev, err := model.ParseEvent(kind, model.SubscriptionID(sub), args)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	if err := s.poster.Post(ev); err != nil {
		return "", dbus.MakeFailedError(err)
	}

	if err := s.EmitEventAccepted(ev); err != nil {
		s.logger.Debug("failed to emit EventAccepted", "error", err)
	}
	return ev.ID, nil
}

// Kinds lists the event kinds Inject accepts.
// D-Bus method: Kinds() -> as
func (s *InjectServer) Kinds() ([]string, *dbus.Error) {
	kinds := model.EventKinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out, nil
}

// SetQuiet turns quiet mode on or off.
// D-Bus method: SetQuiet(b) -> nothing
func (s *InjectServer) SetQuiet(enabled bool) *dbus.Error {
	s.mu.RLock()
	handler := s.quietHandler
	s.mu.RUnlock()

	if handler == nil {
		return dbus.MakeFailedError(fmt.Errorf("quiet mode not available"))
	}
	if err := handler(enabled); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// InjectEvent calls Inject on a running telnotifyd over the session bus.
func InjectEvent(ctx context.Context, kind string, sub int32, args map[string]string) (string, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if args == nil {
		args = map[string]string{}
	}

	var id string
	err = conn.Object(InjectBusName, InjectPath).
		CallWithContext(ctx, InjectInterface+".Inject", 0, kind, sub, args).
		Store(&id)
	if err != nil {
		return "", fmt.Errorf("inject failed: %w", err)
	}
	return id, nil
}

// injectMethods returns the D-Bus method introspection data.
func injectMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Inject",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "sub_id", Type: "i", Direction: "in"},
				{Name: "args", Type: "a{ss}", Direction: "in"},
				{Name: "event_id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Kinds",
			Args: []introspect.Arg{
				{Name: "kinds", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "SetQuiet",
			Args: []introspect.Arg{
				{Name: "enabled", Type: "b", Direction: "in"},
			},
		},
	}
}

// injectSignals returns the D-Bus signal introspection data.
func injectSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "EventAccepted",
			Args: []introspect.Arg{
				{Name: "event_id", Type: "s"},
				{Name: "kind", Type: "s"},
				{Name: "sub_id", Type: "i"},
			},
		},
	}
}
