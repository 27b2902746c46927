// Package monitor is an in-process place/transition net that grants
// permissions to coordinators.
//
// A transition is enabled when every input place holds at least the arc
// weight in tokens and, if it names a guard, the guard has the required
// value. Firing moves tokens from input to output places atomically.
//
//	m, err := monitor.New(ir.NetSpec{
//		Places: map[string]int{"idle": 1},
//		Transitions: map[string]ir.TransitionSpec{
//			"start": {In: map[string]int{"idle": 1}, Out: map[string]int{"busy": 1}},
//			"stop":  {In: map[string]int{"busy": 1}, Out: map[string]int{"idle": 1}},
//		},
//	})
//
// Monitor implements engine.Primitive, engine.EventSource and
// engine.StateReader. All methods are safe for concurrent use.
package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/ir"
)

type arc struct {
	place  int
	weight int
}

type transition struct {
	name     string
	in       []arc
	out      []arc
	guard    string
	want     bool
	informed bool
}

// Monitor is a place/transition net.
type Monitor struct {
	logger *slog.Logger

	mu          sync.Mutex
	places      []string
	marking     []int
	transitions map[string]*transition
	guards      map[string]bool
	fired       map[string]int
	observers   map[string]map[uint64]func(id string)
	nextObs     uint64

	// changed is closed and replaced on every marking or guard change.
	changed chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger used for firing traces. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// New builds a monitor from spec. Arcs must reference declared places with
// positive weights, and transition guards must be declared.
func New(spec ir.NetSpec, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		logger:      slog.Default(),
		transitions: make(map[string]*transition, len(spec.Transitions)),
		guards:      make(map[string]bool, len(spec.Guards)),
		fired:       make(map[string]int),
		observers:   make(map[string]map[uint64]func(id string)),
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	for name := range spec.Places {
		m.places = append(m.places, name)
	}
	sort.Strings(m.places)
	index := make(map[string]int, len(m.places))
	m.marking = make([]int, len(m.places))
	for i, name := range m.places {
		tokens := spec.Places[name]
		if tokens < 0 {
			return nil, &NetError{Message: "place " + name + " has a negative marking"}
		}
		index[name] = i
		m.marking[i] = tokens
	}

	for name, value := range spec.Guards {
		m.guards[name] = value
	}

	for name, ts := range spec.Transitions {
		if name == "" {
			return nil, &NetError{Message: "transition with empty name"}
		}
		t := &transition{name: name, guard: ts.Guard, want: !ts.Negate, informed: ts.Informed}
		var err error
		if t.in, err = arcs(name, ts.In, index); err != nil {
			return nil, err
		}
		if t.out, err = arcs(name, ts.Out, index); err != nil {
			return nil, err
		}
		if t.guard != "" {
			if _, ok := m.guards[t.guard]; !ok {
				return nil, &NetError{Transition: name, Message: "undeclared guard " + t.guard}
			}
		}
		m.transitions[name] = t
	}
	return m, nil
}

func arcs(transition string, weights map[string]int, index map[string]int) ([]arc, error) {
	names := make([]string, 0, len(weights))
	for p := range weights {
		names = append(names, p)
	}
	sort.Strings(names)

	out := make([]arc, 0, len(names))
	for _, p := range names {
		i, ok := index[p]
		if !ok {
			return nil, &NetError{Transition: transition, Message: "unknown place " + p}
		}
		if weights[p] <= 0 {
			return nil, &NetError{Transition: transition, Message: "arc to " + p + " must have a positive weight"}
		}
		out = append(out, arc{place: i, weight: weights[p]})
	}
	return out, nil
}

// RequestPermission fires transition id.
//
// A non-perennial request blocks until the transition is enabled or ctx is
// done. A perennial request fires if the transition is enabled and
// otherwise returns nil immediately.
func (m *Monitor) RequestPermission(ctx context.Context, id string, perennial bool) error {
	m.mu.Lock()
	t, ok := m.transitions[id]
	if !ok {
		m.mu.Unlock()
		return &AdmissionError{Transition: id, Reason: "unknown transition"}
	}

	for !m.enabled(t) {
		if perennial {
			m.mu.Unlock()
			m.logger.Debug("perennial request skipped: not enabled", "transition", id)
			return nil
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
		m.mu.Lock()
	}

	m.fire(t)
	notify := m.observersOf(t)
	m.mu.Unlock()

	m.logger.Debug("transition fired", "transition", id, "perennial", perennial)
	for _, obs := range notify {
		obs(id)
	}
	return nil
}

// SetGuard sets a declared guard. Transitions waiting on it are re-checked.
func (m *Monitor) SetGuard(name string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.guards[name]; !ok {
		return &GuardError{Guard: name}
	}
	if m.guards[name] != value {
		m.guards[name] = value
		m.broadcast()
	}
	return nil
}

// SubscribeToEvent calls observer every time the informed transition id
// fires. The observer runs on the goroutine that fired the transition,
// after the monitor lock is released.
func (m *Monitor) SubscribeToEvent(id string, observer func(id string)) (engine.Unsubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[id]
	if !ok {
		return nil, &AdmissionError{Transition: id, Reason: "unknown transition"}
	}
	if !t.informed {
		return nil, &AdmissionError{Transition: id, Reason: "transition is not informed"}
	}

	key := m.nextObs
	m.nextObs++
	if m.observers[id] == nil {
		m.observers[id] = make(map[uint64]func(id string))
	}
	m.observers[id][key] = observer
	return unsubscriber(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers[id], key)
	}), nil
}

// CurrentState returns the marking in Places order.
func (m *Monitor) CurrentState() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.marking...)
}

// Places returns the place names, sorted. CurrentState uses this order.
func (m *Monitor) Places() []string {
	return append([]string(nil), m.places...)
}

// Marking returns the marking keyed by place name.
func (m *Monitor) Marking() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.places))
	for i, p := range m.places {
		out[p] = m.marking[i]
	}
	return out
}

// Guard returns the current value of a guard.
func (m *Monitor) Guard(name string) (value, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok = m.guards[name]
	return value, ok
}

// Enabled reports whether transition id could fire now.
func (m *Monitor) Enabled(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transitions[id]
	return ok && m.enabled(t)
}

// Fired returns how many times transition id has fired.
func (m *Monitor) Fired(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired[id]
}

func (m *Monitor) enabled(t *transition) bool {
	if t.guard != "" && m.guards[t.guard] != t.want {
		return false
	}
	for _, a := range t.in {
		if m.marking[a.place] < a.weight {
			return false
		}
	}
	return true
}

func (m *Monitor) fire(t *transition) {
	for _, a := range t.in {
		m.marking[a.place] -= a.weight
	}
	for _, a := range t.out {
		m.marking[a.place] += a.weight
	}
	m.fired[t.name]++
	m.broadcast()
}

func (m *Monitor) broadcast() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Monitor) observersOf(t *transition) []func(string) {
	if !t.informed || len(m.observers[t.name]) == 0 {
		return nil
	}
	keys := make([]uint64, 0, len(m.observers[t.name]))
	for k := range m.observers[t.name] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]func(string), len(keys))
	for i, k := range keys {
		out[i] = m.observers[t.name][k]
	}
	return out
}

type unsubscriber func()

func (u unsubscriber) Unsubscribe() { u() }

var (
	_ engine.Primitive   = (*Monitor)(nil)
	_ engine.EventSource = (*Monitor)(nil)
	_ engine.StateReader = (*Monitor)(nil)
)
