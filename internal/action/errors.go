package action

import (
	"errors"
	"fmt"
)

// Registration error codes.
const (
	ErrCodeNilOwner         = "NIL_OWNER"
	ErrCodeNotComparable    = "NOT_COMPARABLE"
	ErrCodeEmptyName        = "EMPTY_NAME"
	ErrCodeNotFunc          = "NOT_FUNC"
	ErrCodeVariadic         = "VARIADIC"
	ErrCodeBadResult        = "BAD_RESULT"
	ErrCodeBadGuard         = "BAD_GUARD"
	ErrCodeDuplicateMember  = "DUPLICATE_MEMBER"
	ErrCodeDuplicateGuard   = "DUPLICATE_GUARD"
	ErrCodeConflictingKinds = "CONFLICTING_KINDS"
)

// RegistrationError reports a member that cannot be added to a Catalog.
type RegistrationError struct {
	Code    string
	Owner   string
	Member  string
	Message string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s.%s: %s (%s)", e.Owner, e.Member, e.Message, e.Code)
}

// IsRegistrationError returns true if err is a RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// Resolution error codes.
const (
	ErrCodeNoOwner         = "NO_OWNER"
	ErrCodeStaticRequired  = "STATIC_REQUIRED"
	ErrCodeNotStatic       = "NOT_STATIC"
	ErrCodeNoMember        = "NO_MEMBER"
	ErrCodeNotSubscribable = "NOT_SUBSCRIBABLE_KIND"
	ErrCodeNilArgument     = "NIL_ARGUMENT"
	ErrCodeNoMatch         = "NO_MATCH"
	ErrCodeAmbiguous       = "AMBIGUOUS"
	ErrCodeMissingGuard    = "MISSING_GUARD"
)

// ErrUnresolved is matched by every ResolveError via errors.Is.
var ErrUnresolved = errors.New("action: unresolved")

// ResolveError reports that no unique member (or guard provider) could be
// found for an owner.
type ResolveError struct {
	Code    string
	Owner   string
	Member  string
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s.%s: %s (%s)", e.Owner, e.Member, e.Message, e.Code)
}

// Is makes errors.Is(err, ErrUnresolved) hold.
func (e *ResolveError) Is(target error) bool {
	return target == ErrUnresolved
}

// IsResolveError returns true if err is a ResolveError.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}
