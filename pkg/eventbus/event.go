package eventbus

import (
	"time"

	"github.com/google/uuid"

	"github.com/systmms/secretaccess/pkg/reference"
)

// Kind tags an event's concrete type for subscription and dispatch. The
// event hierarchy is closed (three concrete kinds plus the KindAny
// wildcard supertype every event also satisfies), so dispatch walks an
// explicit ancestor list (see ancestors) rather than open capability
// predicates.
type Kind string

const (
	// KindAny is the supertype every event satisfies; subscribing to it
	// receives every published event, regardless of concrete kind.
	KindAny Kind = "*"

	KindSecretRefreshRequested Kind = "SecretRefreshRequested"
	KindSecretRefreshed        Kind = "SecretRefreshed"
	KindSecretRolloverDetected Kind = "SecretRolloverDetected"
)

// ancestors returns the kinds, in dispatch order, a handler may subscribe
// to and still receive an event of kind k: k itself, then its supertypes.
func ancestors(k Kind) []Kind {
	if k == KindAny {
		return []Kind{KindAny}
	}
	return []Kind{k, KindAny}
}

// Event is the common interface every published event satisfies.
type Event interface {
	// ID is an opaque, unique identifier assigned at construction.
	ID() string
	// OccurredAt is the creation timestamp assigned at construction.
	OccurredAt() time.Time
	// Kind identifies the event's concrete type for dispatch.
	Kind() Kind
}

type base struct {
	id         string
	occurredAt time.Time
}

func newBase() base {
	return base{id: uuid.NewString(), occurredAt: time.Now()}
}

func (b base) ID() string            { return b.id }
func (b base) OccurredAt() time.Time { return b.occurredAt }

// SecretRefreshRequested is emitted before a refresh attempt.
type SecretRefreshRequested struct {
	base
	Ref    reference.SecretReference
	Reason string
}

// NewSecretRefreshRequested constructs the event with a fresh id and
// timestamp.
func NewSecretRefreshRequested(ref reference.SecretReference, reason string) SecretRefreshRequested {
	return SecretRefreshRequested{base: newBase(), Ref: ref, Reason: reason}
}

func (SecretRefreshRequested) Kind() Kind { return KindSecretRefreshRequested }

// SecretRefreshed is emitted after a successful refresh that updated the
// cache.
type SecretRefreshed struct {
	base
	Ref          reference.SecretReference
	Version      string
	ValueChanged bool
}

// NewSecretRefreshed constructs the event with a fresh id and timestamp.
func NewSecretRefreshed(ref reference.SecretReference, version string, valueChanged bool) SecretRefreshed {
	return SecretRefreshed{base: newBase(), Ref: ref, Version: version, ValueChanged: valueChanged}
}

func (SecretRefreshed) Kind() Kind { return KindSecretRefreshed }

// SecretRolloverDetected is emitted when an active-version secret's
// version changed while an inactive-version counterpart is cached.
type SecretRolloverDetected struct {
	base
	ActiveRef        reference.SecretReference
	InactiveRef      reference.SecretReference
	NewActiveVersion string
}

// NewSecretRolloverDetected constructs the event with a fresh id and
// timestamp.
func NewSecretRolloverDetected(activeRef, inactiveRef reference.SecretReference, newActiveVersion string) SecretRolloverDetected {
	return SecretRolloverDetected{base: newBase(), ActiveRef: activeRef, InactiveRef: inactiveRef, NewActiveVersion: newActiveVersion}
}

func (SecretRolloverDetected) Kind() Kind { return KindSecretRolloverDetected }
