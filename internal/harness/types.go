package harness

import (
	"sync"

	"github.com/roach88/baboon/internal/engine"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: setup and execution behaved as the
	// assertions expect.
	Pass bool `json:"pass"`

	// Trace holds every recorded step, grouped by chain (see package doc).
	Trace []engine.StepEvent `json:"trace"`

	// Calls is the call log, "<worker>.<member>" in invocation order.
	Calls []string `json:"calls"`

	// Runs lists the coordinator runs in chain order.
	Runs []engine.Run `json:"runs"`

	// Marking is the final monitor marking. Nil when no net was configured.
	Marking map[string]int `json:"marking,omitempty"`

	// Errors contains assertion failures and unexpected run errors.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Err is the setup or execution error, if any.
	Err error `json:"-"`

	// TimedOut is set when the run hit the scenario timeout.
	TimedOut bool `json:"timed_out,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.StepEvent{},
		Calls:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// callLog is appended to by scripted members from coordinator goroutines.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.calls...)
}
