package subscription

import (
	"errors"
	"fmt"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/ir"
)

// ErrNotSubscribable is matched by every NotSubscribableError via errors.Is.
var ErrNotSubscribable = errors.New("not subscribable")

// Rejection codes.
const (
	ErrCodeSealed          = "SEALED"
	ErrCodeEmptyTopic      = "EMPTY_TOPIC"
	ErrCodeUnknownTopic    = "UNKNOWN_TOPIC"
	ErrCodeNilOwner        = "NIL_OWNER"
	ErrCodeEmptyMember     = "EMPTY_MEMBER"
	ErrCodeNotComparable   = "NOT_COMPARABLE"
	ErrCodeUnresolved      = "UNRESOLVED"
	ErrCodeMalformedTopic  = "MALFORMED_TOPIC"
	ErrCodeAlreadyBound    = "ALREADY_BOUND"
	ErrCodeEmptyPermission = "EMPTY_PERMISSION"
	ErrCodeGuardUnresolved = "GUARD_UNRESOLVED"
	ErrCodeNotATask        = "NOT_A_TASK"
	ErrCodeChainLength     = "CHAIN_LENGTH"
)

// NotSubscribableError reports a rejected subscription together with the
// (topic, owner, member) it was made for. A rejected call leaves the
// manager unchanged.
type NotSubscribableError struct {
	Code   string
	Topic  string
	Owner  any
	Member string
	Err    error
}

func (e *NotSubscribableError) Error() string {
	msg := fmt.Sprintf("not subscribable: %s.%s to topic %q (%s)",
		action.DescribeOwner(e.Owner), e.Member, e.Topic, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotSubscribableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotSubscribable) hold.
func (e *NotSubscribableError) Is(target error) bool {
	return target == ErrNotSubscribable
}

// IsNotSubscribable returns true if err is a NotSubscribableError.
func IsNotSubscribable(err error) bool {
	var ne *NotSubscribableError
	return errors.As(err, &ne)
}

// CodeOf returns the rejection code of err, or "" when err is not a
// NotSubscribableError.
func CodeOf(err error) string {
	var ne *NotSubscribableError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return ""
}

type malformedTopicError struct {
	topic ir.Topic
}

func (e *malformedTopicError) Error() string {
	return fmt.Sprintf("topic %q has %d permissions but %d guard sets",
		e.topic.Name, len(e.topic.Permission), len(e.topic.GuardCallbacks))
}

type alreadyBoundError struct {
	topic string
}

func (e *alreadyBoundError) Error() string {
	return fmt.Sprintf("handler is already bound to topic %q", e.topic)
}

type chainLengthError struct {
	chain int
	topic string
	steps int
	want  int
}

func (e *chainLengthError) Error() string {
	return fmt.Sprintf("chain %d of topic %q has %d steps, topic has %d permissions",
		e.chain, e.topic, e.steps, e.want)
}
