package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/baboon/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Topic errors (E201-E209)
	ErrTopicNameEmpty      = "E201" // topic name is required
	ErrGuardLengthMismatch = "E202" // len(guardCallbacks) != len(permission)
	ErrEmptyPermission     = "E203" // empty permission identifier
	ErrDuplicateTopic      = "E204" // two topics share a name
	ErrNoPermissions       = "E205" // topic has no permission steps (event-only)

	// Net cross-reference errors (E210-E219)
	ErrUnknownTransition = "E210" // permission/fire callback not a net transition
	ErrUnknownGuard      = "E211" // guard callback not declared in net guards
	ErrUnknownPlace      = "E212" // arc references undeclared place
)

// ValidationError represents a lint finding on compiled topics or net.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Warning reports whether the finding is advisory. Event-only topics
// (no permissions) are legal but cannot carry task chains.
func (e ValidationError) Warning() bool {
	return e.Code == ErrNoPermissions
}

// Validate lints a compiled spec. Returns every finding (does not fail-fast).
//
// A guard/permission length mismatch is reported here for tooling even
// though the loader accepts it; subscription rejects such topics.
func Validate(spec *Spec) []ValidationError {
	var errs []ValidationError
	if spec == nil {
		return errs
	}

	seen := make(map[string]bool, len(spec.Topics))
	for i, t := range spec.Topics {
		field := fmt.Sprintf("topic.%s", t.Name)

		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("topics[%d].name", i),
				Message: "topic name is required",
				Code:    ErrTopicNameEmpty,
			})
		}
		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate topic name %q", t.Name),
				Code:    ErrDuplicateTopic,
			})
		}
		seen[t.Name] = true

		if !t.WellFormed() {
			errs = append(errs, ValidationError{
				Field:   field + ".guardCallbacks",
				Message: fmt.Sprintf("%d guard sets for %d permissions", len(t.GuardCallbacks), len(t.Permission)),
				Code:    ErrGuardLengthMismatch,
			})
		}
		if len(t.Permission) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".permission",
				Message: "no permissions: only event handlers can subscribe",
				Code:    ErrNoPermissions,
			})
		}
		for j, p := range t.Permission {
			if p == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.permission[%d]", field, j),
					Message: "permission identifier is empty",
					Code:    ErrEmptyPermission,
				})
			}
		}

		if spec.Net != nil {
			errs = append(errs, crossCheckTopic(t, field, spec.Net)...)
		}
	}

	if spec.Net != nil {
		errs = append(errs, validateNet(spec.Net)...)
	}

	return errs
}

func crossCheckTopic(t ir.Topic, field string, net *ir.NetSpec) []ValidationError {
	var errs []ValidationError
	for j, p := range t.Permission {
		if p == "" {
			continue
		}
		if _, ok := net.Transitions[p]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.permission[%d]", field, j),
				Message: fmt.Sprintf("transition %q is not defined in net", p),
				Code:    ErrUnknownTransition,
			})
		}
	}
	for j, set := range t.GuardCallbacks {
		for _, g := range set {
			if _, ok := net.Guards[g]; !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.guardCallbacks[%d]", field, j),
					Message: fmt.Sprintf("guard %q is not declared in net", g),
					Code:    ErrUnknownGuard,
				})
			}
		}
	}
	for j, f := range t.FireCallbacks {
		if _, ok := net.Transitions[f]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.fireCallbacks[%d]", field, j),
				Message: fmt.Sprintf("transition %q is not defined in net", f),
				Code:    ErrUnknownTransition,
			})
		}
	}
	return errs
}

func validateNet(net *ir.NetSpec) []ValidationError {
	var errs []ValidationError

	names := make([]string, 0, len(net.Transitions))
	for name := range net.Transitions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tr := net.Transitions[name]
		for _, arcs := range []map[string]int{tr.In, tr.Out} {
			for _, place := range sortedKeys(arcs) {
				if _, ok := net.Places[place]; !ok {
					errs = append(errs, ValidationError{
						Field:   "net.transitions." + name,
						Message: fmt.Sprintf("place %q is not declared", place),
						Code:    ErrUnknownPlace,
					})
				}
			}
		}
		if tr.Guard != "" {
			if _, ok := net.Guards[tr.Guard]; !ok {
				errs = append(errs, ValidationError{
					Field:   "net.transitions." + name + ".guard",
					Message: fmt.Sprintf("guard %q is not declared", tr.Guard),
					Code:    ErrUnknownGuard,
				})
			}
		}
	}
	return errs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
