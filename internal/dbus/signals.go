package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/telnotify/internal/model"
)

// EmitEventAccepted emits the EventAccepted signal after an injected event
// was queued for dispatch.
func (s *InjectServer) EmitEventAccepted(ev *model.Event) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(InjectPath, InjectInterface+".EventAccepted", ev.ID, string(ev.Kind), int32(ev.SubID))
	if err != nil {
		return fmt.Errorf("failed to emit EventAccepted signal: %w", err)
	}

	s.logger.Debug("emitted EventAccepted signal", "event_id", ev.ID, "kind", string(ev.Kind))
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *InjectServer) Connection() *dbus.Conn {
	return s.conn
}
