package harness

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/subscription"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Calls    []string // Full call log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCall log:\n")
		for i, call := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, call)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCalls:
		return assertCalls(result.Calls, a)
	case AssertCallOrder:
		return assertCallOrder(result.Calls, a)
	case AssertCallCount:
		return assertCallCount(result.Calls, a)
	case AssertGuardPushes:
		return assertGuardPushes(result.Trace, a, result.Calls)
	case AssertFired:
		return assertSequence(AssertFired, a.Fired, stepNames(result.Trace, engine.StepFire), result.Calls)
	case AssertFinalMarking:
		return assertFinalMarking(result.Marking, a)
	case AssertError:
		return assertError(result.Err, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCalls checks that the call log equals the expected calls exactly.
func assertCalls(calls []string, a Assertion) error {
	return assertSequence(AssertCalls, a.Calls, calls, calls)
}

// assertCallOrder checks that the expected calls appear in order.
// Calls don't need to be consecutive (intervening calls are allowed).
func assertCallOrder(calls []string, a Assertion) error {
	next := 0
	for _, call := range calls {
		if next < len(a.Calls) && call == a.Calls[next] {
			next++
		}
	}
	if next == len(a.Calls) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("calls in order: %v", a.Calls),
		Actual:   fmt.Sprintf("%s not found after %v", a.Calls[next], a.Calls[:next]),
		Calls:    calls,
	}
}

// assertCallCount checks that the call appears exactly the specified number of times.
func assertCallCount(calls []string, a Assertion) error {
	count := 0
	for _, call := range calls {
		if call == a.Call {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Call),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Calls:    calls,
		}
	}
	return nil
}

func assertSequence(kind string, want, got, calls []string) error {
	if want == nil {
		want = []string{}
	}
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Calls:    calls,
	}
}

// assertGuardPushes compares pushed guards in trace order. An expected
// entry "g1=true" also checks the value; "g1" checks only the name.
func assertGuardPushes(trace []engine.StepEvent, a Assertion, calls []string) error {
	got := guardPushes(trace)
	match := len(got) == len(a.Guards)
	for i := 0; match && i < len(got); i++ {
		want := a.Guards[i]
		if !strings.Contains(want, "=") {
			want += "=" + strings.SplitN(got[i], "=", 2)[1]
		}
		match = want == got[i]
	}
	if match {
		return nil
	}
	return &AssertionError{
		Type:     AssertGuardPushes,
		Expected: fmt.Sprintf("%v", a.Guards),
		Actual:   fmt.Sprintf("%v", got),
		Calls:    calls,
	}
}

// guardPushes renders pushed guards as "name=value".
func guardPushes(trace []engine.StepEvent) []string {
	out := []string{}
	for _, ev := range trace {
		if ev.Kind == engine.StepGuard {
			out = append(out, ev.Name+"="+strconv.FormatBool(ev.Value))
		}
	}
	return out
}

func stepNames(trace []engine.StepEvent, kind engine.StepKind) []string {
	out := []string{}
	for _, ev := range trace {
		if ev.Kind == kind {
			out = append(out, ev.Name)
		}
	}
	return out
}

// assertFinalMarking checks the monitor marking with subset semantics.
func assertFinalMarking(marking map[string]int, a Assertion) error {
	if marking == nil {
		return &AssertionError{
			Type:     AssertFinalMarking,
			Expected: fmt.Sprintf("marking %v", a.Marking),
			Actual:   "no net configured",
		}
	}
	for _, place := range sortedPlaces(a.Marking) {
		got, ok := marking[place]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalMarking,
				Expected: fmt.Sprintf("place %q to exist", place),
				Actual:   fmt.Sprintf("places: %v", sortedPlaces(marking)),
			}
		}
		if got != a.Marking[place] {
			return &AssertionError{
				Type:     AssertFinalMarking,
				Expected: fmt.Sprintf("%s = %d", place, a.Marking[place]),
				Actual:   fmt.Sprintf("%s = %d", place, got),
			}
		}
	}
	return nil
}

// assertError checks that the run failed with the given code.
func assertError(err error, a Assertion) error {
	codes := ErrorCodes(err)
	if slices.Contains(codes, a.Code) {
		return nil
	}
	actual := "no error"
	if err != nil {
		actual = fmt.Sprintf("codes %v (%v)", codes, err)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: "error with code " + a.Code,
		Actual:   actual,
	}
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}

// ErrorCodes returns every subscription, execution and timeout code found
// in err, including inside joined errors.
func ErrorCodes(err error) []string {
	var codes []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		switch e := err.(type) {
		case *subscription.NotSubscribableError:
			codes = append(codes, e.Code)
		case *engine.ExecutionError:
			codes = append(codes, string(e.Code))
		case *timeoutError:
			codes = append(codes, ErrCodeTimeout)
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(err))
		}
	}
	walk(err)
	return codes
}

func sortedPlaces(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
