package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/compiler"
	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/monitor"
	"github.com/roach88/baboon/internal/store"
	"github.com/roach88/baboon/internal/subscription"
	"github.com/roach88/baboon/internal/testutil"
	"github.com/roach88/baboon/internal/topic"
)

// ErrCodeTimeout is the error code of a run that hit its timeout.
const ErrCodeTimeout = "TIMEOUT"

// Harness holds the per-run collaborators of a scenario.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	clock    *testutil.DeterministicClock
	ids      *testutil.SequentialIDs
	logger   *slog.Logger
	calls    *callLog
	workers  map[string]*scriptedWorker
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Load topics and net from specs and inline definitions
// 2. Build the snapshot from the scenario's workers and subscriptions
// 3. Run every chain for max_cycles cycles against the monitor
// 4. Read the trace back from the store and evaluate assertions
//
// The returned error is reserved for problems with the scenario itself
// (unreadable specs, an invalid net). Setup and execution failures are
// reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.DiscardHandler))
}

// RunWithLogger is Run with engine and monitor logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    testutil.NewDeterministicClock(),
		ids:      testutil.NewSequentialIDs("run"),
		logger:   logger,
		calls:    &callLog{},
		workers:  make(map[string]*scriptedWorker),
	}
	return h.run(context.Background())
}

func (h *Harness) run(ctx context.Context) (*Result, error) {
	spec, err := loadSpec(h.scenario)
	if err != nil {
		return nil, err
	}
	reg, err := topic.Load(spec.Topics)
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}

	var (
		prim engine.Primitive = testutil.NewFakePrimitive()
		mon  *monitor.Monitor
	)
	if spec.Net != nil {
		mon, err = monitor.New(*spec.Net, monitor.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to build monitor: %w", err)
		}
		prim = mon
	}

	result := NewResult()
	snap, err := subscription.Build(reg, h)
	if err == nil {
		err = h.execute(ctx, snap, prim, mon, result)
	}
	result.Err = err

	if result.Trace, err = h.readTrace(ctx); err != nil {
		return nil, err
	}
	result.Calls = h.calls.snapshot()
	if mon != nil {
		result.Marking = mon.Marking()
	}

	for _, msg := range EvaluateAssertions(result, h.scenario.Assertions) {
		result.AddError(msg)
	}
	if result.Err != nil && !expectsError(h.scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected error: %v", result.Err))
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, snap *subscription.Snapshot, prim engine.Primitive, mon *monitor.Monitor, result *Result) error {
	timeout := h.scenario.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := engine.NewRunner(snap, prim, h.ids,
		engine.WithMaxCycles(h.scenario.MaxCycles),
		engine.WithRecorder(h.store),
		engine.WithClock(h.clock),
		engine.WithLogger(h.logger),
	)
	if mon != nil && len(snap.EventSubscriptions()) > 0 {
		r.WithEvents(mon)
	}

	err := r.Run(runCtx)
	result.Runs = r.Runs()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		return errors.Join(err, &timeoutError{timeout: timeout.String()})
	}
	return err
}

// Declare registers every scripted worker. Harness implements
// subscription.Setup.
func (h *Harness) Declare(cat *action.Catalog) {
	for _, def := range h.scenario.Workers {
		w := newScriptedWorker(def, h.calls)
		h.workers[def.Name] = w
		w.declare(cat)
	}
}

// Subscribe applies the scenario's subscriptions in order.
func (h *Harness) Subscribe(m *subscription.Manager) error {
	chains := make(map[string]*subscription.ChainBuilder)
	for i, sub := range h.scenario.Subscriptions {
		owner := h.workers[sub.Worker]

		var err error
		if sub.Chain == "" {
			err = m.Subscribe(sub.Topic, owner, sub.Member)
		} else {
			b, ok := chains[sub.Chain]
			if !ok {
				if b, err = m.NewChain(sub.Topic); err != nil {
					return fmt.Errorf("subscriptions[%d]: %w", i, err)
				}
				chains[sub.Chain] = b
			}
			err = b.Subscribe(owner, sub.Member)
		}
		if err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) readTrace(ctx context.Context) ([]engine.StepEvent, error) {
	steps, err := h.store.ReadSteps(ctx, store.StepFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	slices.SortStableFunc(steps, func(a, b engine.StepEvent) int {
		return cmp.Compare(chainOrder(a.ChainID), chainOrder(b.ChainID))
	})
	return steps, nil
}

// chainOrder sorts dispatcher events (chain 0) after every chain.
func chainOrder(id int) int {
	if id == 0 {
		return math.MaxInt
	}
	return id
}

func loadSpec(s *Scenario) (*compiler.Spec, error) {
	spec := &compiler.Spec{}
	for _, path := range s.Specs {
		file, err := compiler.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load spec: %w", err)
		}
		if file.Net != nil && spec.Net != nil {
			return nil, fmt.Errorf("failed to load spec: %s declares a second net", path)
		}
		spec.Merge(file)
	}

	if s.Topics.Kind != 0 {
		data, err := yaml.Marshal(&s.Topics)
		if err != nil {
			return nil, fmt.Errorf("failed to encode inline topics: %w", err)
		}
		inline, err := compiler.DecodeSpec(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline topics: %w", err)
		}
		spec.Merge(inline)
	}

	if s.Net != nil {
		if spec.Net != nil {
			return nil, fmt.Errorf("net declared both inline and in specs")
		}
		spec.Net = s.Net
	}
	return spec, nil
}

type timeoutError struct {
	timeout string
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("%s: scenario did not finish within %s", ErrCodeTimeout, e.timeout)
}

// CheckDeterminism runs a scenario twice and compares the traces. Returns
// nil if they are identical up to seq and run id.
func CheckDeterminism(scenario *Scenario) (*store.Divergence, error) {
	first, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	second, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return store.CompareSteps(first.Trace, second.Trace), nil
}
