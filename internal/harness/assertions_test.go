package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/subscription"
)

func traceOf(events ...engine.StepEvent) *Result {
	r := NewResult()
	r.Trace = events
	return r
}

func TestAssertCalls(t *testing.T) {
	r := NewResult()
	r.Calls = []string{"w.a", "w.b"}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertCalls, Calls: []string{"w.a", "w.b"}}}))

	failures := EvaluateAssertions(r, []Assertion{{Type: AssertCalls, Calls: []string{"w.b", "w.a"}}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "assertions[0]")
	assert.Contains(t, failures[0], "[1] w.a")
}

func TestAssertCallsEmpty(t *testing.T) {
	r := NewResult()
	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertCalls}}))

	r.Calls = []string{"w.a"}
	assert.Len(t, EvaluateAssertions(r, []Assertion{{Type: AssertCalls}}), 1)
}

func TestAssertCallOrder(t *testing.T) {
	r := NewResult()
	r.Calls = []string{"a.x", "b.x", "a.y", "b.y"}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertCallOrder, Calls: []string{"a.x", "a.y"}}}))

	failures := EvaluateAssertions(r, []Assertion{{Type: AssertCallOrder, Calls: []string{"a.y", "a.x"}}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "a.x not found after [a.y]")
}

func TestAssertCallCount(t *testing.T) {
	r := NewResult()
	r.Calls = []string{"a.x", "b.x", "a.x"}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{
		{Type: AssertCallCount, Call: "a.x", Count: 2},
		{Type: AssertCallCount, Call: "c.x", Count: 0},
	}))
	failures := EvaluateAssertions(r, []Assertion{{Type: AssertCallCount, Call: "b.x", Count: 2}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "1 occurrences")
}

func TestAssertGuardPushes(t *testing.T) {
	r := traceOf(
		engine.StepEvent{Kind: engine.StepInvoke, Name: "t1"},
		engine.StepEvent{Kind: engine.StepGuard, Name: "g1", Value: true},
		engine.StepEvent{Kind: engine.StepGuardSkipped, Name: "g9"},
		engine.StepEvent{Kind: engine.StepGuard, Name: "g2"},
	)

	tests := []struct {
		name   string
		guards []string
		pass   bool
	}{
		{"names only", []string{"g1", "g2"}, true},
		{"names and values", []string{"g1=true", "g2=false"}, true},
		{"mixed", []string{"g1=true", "g2"}, true},
		{"wrong value", []string{"g1=false", "g2"}, false},
		{"wrong order", []string{"g2", "g1"}, false},
		{"too few", []string{"g1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(r, []Assertion{{Type: AssertGuardPushes, Guards: tt.guards}})
			assert.Equal(t, tt.pass, len(failures) == 0, "failures: %v", failures)
		})
	}
}

func TestAssertFired(t *testing.T) {
	r := traceOf(
		engine.StepEvent{Kind: engine.StepFire, Name: "done"},
		engine.StepEvent{Kind: engine.StepPermission, Name: "p1"},
		engine.StepEvent{Kind: engine.StepFire, Name: "done"},
	)
	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertFired, Fired: []string{"done", "done"}}}))
	assert.Len(t, EvaluateAssertions(r, []Assertion{{Type: AssertFired, Fired: []string{"done"}}}), 1)
	assert.Len(t, EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFired, Fired: []string{"done"}}}), 1)
	assert.Empty(t, EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFired}}))
}

func TestAssertFinalMarking(t *testing.T) {
	r := NewResult()
	r.Marking = map[string]int{"ready": 1, "half": 0}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertFinalMarking, Marking: map[string]int{"ready": 1}}}))

	failures := EvaluateAssertions(r, []Assertion{{Type: AssertFinalMarking, Marking: map[string]int{"half": 2}}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "half = 0")

	failures = EvaluateAssertions(r, []Assertion{{Type: AssertFinalMarking, Marking: map[string]int{"gone": 0}}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `place "gone" to exist`)

	failures = EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalMarking, Marking: map[string]int{"ready": 1}}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "no net configured")
}

func TestAssertError(t *testing.T) {
	r := NewResult()
	r.Err = fmt.Errorf("setup: %w", &subscription.NotSubscribableError{Code: subscription.ErrCodeChainLength, Topic: "t"})

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertError, Code: "CHAIN_LENGTH"}}))

	failures := EvaluateAssertions(r, []Assertion{{Type: AssertError, Code: "ACTION_PANIC"}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "codes [CHAIN_LENGTH]")

	failures = EvaluateAssertions(NewResult(), []Assertion{{Type: AssertError, Code: "ACTION_PANIC"}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "no error")
}

func TestErrorCodes(t *testing.T) {
	err := errors.Join(
		&engine.ExecutionError{Code: engine.ErrCodeActionPanic},
		fmt.Errorf("wrapped: %w", &engine.ExecutionError{Code: engine.ErrCodeGuardFailed}),
		&timeoutError{timeout: "1s"},
		context.Canceled,
	)
	assert.Equal(t, []string{"ACTION_PANIC", "GUARD_FAILED", ErrCodeTimeout}, ErrorCodes(err))
	assert.Empty(t, ErrorCodes(nil))
	assert.Empty(t, ErrorCodes(errors.New("plain")))
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCalls,
		Expected: "[w.a]",
		Actual:   "[]",
		Calls:    []string{"w.b"},
	}
	assert.Equal(t, "Assertion failed: calls\n  Expected: [w.a]\n  Actual: []\n\nCall log:\n  [1] w.b\n", err.Error())
}
