package engine

import "context"

// Primitive is the synchronization primitive coordinators run against.
// Implementations serialize their own state; coordinators call them
// concurrently.
type Primitive interface {
	// RequestPermission asks to fire the transition id. A non-perennial
	// request blocks until granted, refused, or ctx is done. A perennial
	// request fires if it can and returns immediately.
	RequestPermission(ctx context.Context, id string, perennial bool) error

	// SetGuard stores a guard value.
	SetGuard(name string, value bool) error
}

// Unsubscriber cancels an event subscription.
type Unsubscriber interface {
	Unsubscribe()
}

// EventSource delivers notifications when an informed transition fires.
type EventSource interface {
	SubscribeToEvent(id string, observer func(id string)) (Unsubscriber, error)
}

// StateReader exposes the primitive's current state for introspection.
type StateReader interface {
	CurrentState() []int
}
