// Package logsink implements a structured-log Event Bus subscriber,
// grounded in the teacher's zap usage throughout internal/rotation — an
// opaque consumer of the bus per the specification's event design, added
// by subscribing it to eventbus.KindAny.
package logsink

import (
	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/eventbus"
)

// Sink logs every event it receives at Info level, one structured line
// per event, field names matching the event's own fields.
type Sink struct {
	log logging.Logger
}

// New constructs a Sink that logs through l.
func New(l logging.Logger) *Sink {
	return &Sink{log: l}
}

// Handler returns the eventbus.Handler to subscribe with
// bus.Subscribe(eventbus.KindAny, sink.Handler()).
func (s *Sink) Handler() eventbus.Handler {
	return func(e eventbus.Event) {
		switch ev := e.(type) {
		case eventbus.SecretRefreshRequested:
			s.log.Info("secret refresh requested", "ref", ev.Ref.String(), "reason", ev.Reason)
		case eventbus.SecretRefreshed:
			s.log.Info("secret refreshed", "ref", ev.Ref.String(), "version", ev.Version, "value_changed", ev.ValueChanged)
		case eventbus.SecretRolloverDetected:
			s.log.Info("secret rollover detected", "active_ref", ev.ActiveRef.String(), "inactive_ref", ev.InactiveRef.String(), "new_active_version", ev.NewActiveVersion)
		default:
			s.log.Info("event bus: unrecognized event kind", "kind", e.Kind())
		}
	}
}
