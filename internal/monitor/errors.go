package monitor

import (
	"errors"
	"fmt"
)

// AdmissionError is returned when a permission cannot be requested at all:
// the transition is unknown, or an event subscription names a transition
// that is not informed.
type AdmissionError struct {
	Transition string
	Reason     string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission refused for %q: %s", e.Transition, e.Reason)
}

// GuardError is returned when a guard value is pushed for a guard the net
// does not declare.
type GuardError struct {
	Guard string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("unknown guard %q", e.Guard)
}

// NetError reports a malformed net at construction.
type NetError struct {
	Transition string
	Message    string
}

func (e *NetError) Error() string {
	if e.Transition == "" {
		return "invalid net: " + e.Message
	}
	return fmt.Sprintf("invalid net: transition %q: %s", e.Transition, e.Message)
}

// IsAdmissionError returns true if err is or wraps an *AdmissionError.
func IsAdmissionError(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}

// IsGuardError returns true if err is or wraps a *GuardError.
func IsGuardError(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}
