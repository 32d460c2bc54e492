// Package natssink implements a NATS-backed Event Bus subscriber,
// grounded in Checker-Finance-adapters' internal/jobs.SummaryRefresher use
// of a *nats.Conn for completion notifications: SecretRefreshed and
// SecretRolloverDetected are marshaled to JSON and published to a subject.
//
// Symmetrically, Bridge gives the Refresh Coordinator's externally
// received SecretRefreshRequested events a concrete transport: subscribing
// a Bridge to a NATS subject decodes each message and calls
// Coordinator.HandleRefreshEvent.
package natssink

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/systmms/secretaccess/internal/logging"
	"github.com/systmms/secretaccess/pkg/eventbus"
	"github.com/systmms/secretaccess/pkg/reference"
)

// Sink publishes SecretRefreshed and SecretRolloverDetected events to nc
// as JSON messages on subject; other event kinds are ignored.
type Sink struct {
	nc      *nats.Conn
	subject string
	log     logging.Logger
}

// New constructs a Sink publishing on subject over nc.
func New(nc *nats.Conn, subject string, l logging.Logger) *Sink {
	return &Sink{nc: nc, subject: subject, log: l}
}

type wireEvent struct {
	Kind string `json:"kind"`
	Body any    `json:"body"`
}

// Handler returns the eventbus.Handler to subscribe with
// bus.Subscribe(eventbus.KindAny, sink.Handler()).
func (s *Sink) Handler() eventbus.Handler {
	return func(e eventbus.Event) {
		switch e.(type) {
		case eventbus.SecretRefreshed, eventbus.SecretRolloverDetected:
		default:
			return
		}
		payload, err := json.Marshal(wireEvent{Kind: string(e.Kind()), Body: e})
		if err != nil {
			s.log.Error("natssink: failed to marshal event", "kind", e.Kind(), "err", err)
			return
		}
		if err := s.nc.Publish(s.subject, payload); err != nil {
			s.log.Error("natssink: failed to publish event", "kind", e.Kind(), "subject", s.subject, "err", err)
		}
	}
}

// RefreshRequestHandler is the function a Bridge calls once a
// SecretRefreshRequested message has been decoded off the wire.
type RefreshRequestHandler func(ctx context.Context, ref reference.SecretReference, reason string)

type refreshRequestPayload struct {
	StoreType   reference.StoreType `json:"store_type"`
	Name        string              `json:"name"`
	VersionHint string              `json:"version_hint"`
	Reason      string              `json:"reason"`
}

// Bridge subscribes to a NATS subject carrying externally originated
// refresh requests (a webhook adapter publishing on the store's behalf)
// and relays each one to handler — typically Coordinator.HandleRefreshEvent
// wrapped to match RefreshRequestHandler's shape.
type Bridge struct {
	nc      *nats.Conn
	subject string
	log     logging.Logger
	handler RefreshRequestHandler
	sub     *nats.Subscription
}

// NewBridge constructs a Bridge that will call handler for every message
// received on subject once Start is called.
func NewBridge(nc *nats.Conn, subject string, l logging.Logger, handler RefreshRequestHandler) *Bridge {
	return &Bridge{nc: nc, subject: subject, log: l, handler: handler}
}

// Start subscribes to the bridge's subject. Not idempotent: calling Start
// twice without an intervening Stop leaks the first subscription.
func (b *Bridge) Start(ctx context.Context) error {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var payload refreshRequestPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			b.log.Error("natssink: failed to decode refresh request", "subject", b.subject, "err", err)
			return
		}
		ref, err := reference.New(payload.StoreType, payload.Name, payload.VersionHint)
		if err != nil {
			b.log.Error("natssink: invalid reference in refresh request", "err", err)
			return
		}
		b.handler(ctx, ref, payload.Reason)
	})
	if err != nil {
		return err
	}
	b.sub = sub
	return nil
}

// Stop unsubscribes from the bridge's subject.
func (b *Bridge) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}
