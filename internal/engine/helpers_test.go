package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/ir"
	"github.com/roach88/baboon/internal/subscription"
	"github.com/roach88/baboon/internal/topic"
)

// worker is a task owner whose members append to a shared log.
type worker struct {
	mu     sync.Mutex
	log    []string
	g1, g2 bool
	fail   error
}

func (w *worker) append(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.log = append(w.log, s)
}

func (w *worker) Log() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.log...)
}

func (w *worker) T1()          { w.append("t1") }
func (w *worker) T2()          { w.append("t2") }
func (w *worker) Fails() error { return w.fail }
func (w *worker) Panics()      { panic("kaboom") }
func (w *worker) OnEvent()     { w.append("event") }
func (w *worker) Guard1() bool { return w.g1 }
func (w *worker) Guard2() bool { return w.g2 }

func (w *worker) declare(cat *action.Catalog) {
	cat.Instance(w).
		Task("t1", w.T1).
		Task("t2", w.T2).
		Task("fails", w.Fails).
		Task("panics", w.Panics).
		EventHandler("onEvent", w.OnEvent).
		GuardProvider("g1", w.Guard1).
		GuardProvider("g2", w.Guard2)
}

func testTopics() []ir.Topic {
	return []ir.Topic{
		{Name: "topic1", Permission: []string{"p1"}, GuardCallbacks: [][]string{{"g1"}}},
		{Name: "topic3", Permission: []string{"p1", "p2"}, GuardCallbacks: [][]string{{"g1"}, {"g2"}}, FireCallbacks: []string{"done"}},
		{Name: "other", Permission: []string{"q1"}, GuardCallbacks: [][]string{{}}, FireCallbacks: []string{"otherDone"}},
	}
}

type subscribeFn func(m *subscription.Manager) error

// buildSnapshot declares every worker and applies the subscriptions.
func buildSnapshot(t *testing.T, workers []*worker, subs ...subscribeFn) *subscription.Snapshot {
	t.Helper()
	reg, err := topic.Load(testTopics())
	require.NoError(t, err)

	cat := action.NewCatalog()
	for _, w := range workers {
		w.declare(cat)
	}
	require.NoError(t, cat.Err())

	m := subscription.NewManager(reg, cat)
	for _, s := range subs {
		require.NoError(t, s(m))
	}
	snap, err := m.Snapshot()
	require.NoError(t, err)
	return snap
}

func sub(topicName string, owner any, member string) subscribeFn {
	return func(m *subscription.Manager) error {
		return m.Subscribe(topicName, owner, member)
	}
}

// topic3Chain returns the t1,t2 chain on topic3 for w.
func topic3Chain(t *testing.T, w *worker) *subscription.TaskChain {
	t.Helper()
	snap := buildSnapshot(t, []*worker{w}, sub("topic3", w, "t1"), sub("topic3", w, "t2"))
	require.Len(t, snap.TaskChains(), 1)
	return snap.TaskChains()[0]
}

// memRecorder keeps runs and steps in memory.
type memRecorder struct {
	mu    sync.Mutex
	runs  []RunInfo
	steps []StepEvent
	err   error
}

func (r *memRecorder) RecordRun(_ context.Context, run RunInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func (r *memRecorder) RecordStep(_ context.Context, ev StepEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, ev)
	return r.err
}

func (r *memRecorder) Steps() []StepEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepEvent(nil), r.steps...)
}

// kinds renders steps as "kind:name" for compact assertions.
func kinds(steps []StepEvent) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s.Kind) + ":" + s.Name
	}
	return out
}

// mockPrimitive is a testify mock of Primitive.
type mockPrimitive struct {
	mock.Mock
}

func (m *mockPrimitive) RequestPermission(ctx context.Context, id string, perennial bool) error {
	return m.Called(ctx, id, perennial).Error(0)
}

func (m *mockPrimitive) SetGuard(name string, value bool) error {
	return m.Called(name, value).Error(0)
}
