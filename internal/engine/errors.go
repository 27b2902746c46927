package engine

import (
	"fmt"
)

// ExecutionErrorCode categorizes execution errors.
type ExecutionErrorCode string

const (
	// ErrCodeInvalidChain indicates a chain that cannot run (empty, or its
	// length differs from its topic's permission count).
	ErrCodeInvalidChain ExecutionErrorCode = "INVALID_CHAIN"

	// ErrCodeAdmissionFailed indicates the primitive refused a permission.
	ErrCodeAdmissionFailed ExecutionErrorCode = "ADMISSION_FAILED"

	// ErrCodeActionFailed indicates the step's action returned an error.
	ErrCodeActionFailed ExecutionErrorCode = "ACTION_FAILED"

	// ErrCodeActionPanic indicates the step's action or a guard provider
	// panicked.
	ErrCodeActionPanic ExecutionErrorCode = "ACTION_PANIC"

	// ErrCodeGuardFailed indicates the primitive rejected a guard value.
	ErrCodeGuardFailed ExecutionErrorCode = "GUARD_FAILED"

	// ErrCodeFireFailed indicates a cycle callback could not be fired.
	ErrCodeFireFailed ExecutionErrorCode = "FIRE_FAILED"
)

// ExecutionError terminates one coordinator. Other coordinators keep
// running.
type ExecutionError struct {
	Code    ExecutionErrorCode
	Message string

	RunID   string
	ChainID int
	Topic   string
	Step    int

	// Target is the permission, guard or callback involved, if any.
	Target string

	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s (topic=%s, chain=%d, step=%d", e.Code, e.Message, e.Topic, e.ChainID, e.Step)
	if e.Target != "" {
		msg += ", target=" + e.Target
	}
	if e.RunID != "" {
		msg += ", run=" + e.RunID
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError reports whether any ExecutionError in err's tree has
// the given code. Every branch of a joined error is searched.
func IsExecutionError(err error, code ExecutionErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *ExecutionError:
		if e.Code == code {
			return true
		}
		return IsExecutionError(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsExecutionError(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsExecutionError(e.Unwrap(), code)
	}
	return false
}

// IsAdmissionError returns true if err is an admission failure.
func IsAdmissionError(err error) bool {
	return IsExecutionError(err, ErrCodeAdmissionFailed)
}

// IsPanicError returns true if err is a recovered action panic.
func IsPanicError(err error) bool {
	return IsExecutionError(err, ErrCodeActionPanic)
}

// PanicError carries a value recovered from user code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
