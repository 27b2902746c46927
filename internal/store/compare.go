package store

import (
	"context"
	"fmt"

	"github.com/roach88/baboon/internal/engine"
)

// Divergence is the first position at which two traces differ. Left or
// Right is nil when one trace is a prefix of the other.
type Divergence struct {
	Index int
	Left  *engine.StepEvent
	Right *engine.StepEvent
}

func (d *Divergence) String() string {
	return fmt.Sprintf("traces diverge at step %d: %s vs %s", d.Index, describeStep(d.Left), describeStep(d.Right))
}

// CompareRuns compares the recorded traces of two runs. Seq and run id are
// ignored. Returns nil if the traces are equivalent.
func (s *Store) CompareRuns(ctx context.Context, left, right string) (*Divergence, error) {
	a, err := s.ReadSteps(ctx, StepFilter{RunID: left})
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	b, err := s.ReadSteps(ctx, StepFilter{RunID: right})
	if err != nil {
		return nil, fmt.Errorf("compare runs: %w", err)
	}
	return CompareSteps(a, b), nil
}

// CompareSteps compares two traces ignoring seq and run id. Returns nil
// if they are equivalent.
func CompareSteps(a, b []engine.StepEvent) *Divergence {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !sameStep(a[i], b[i]) {
			return &Divergence{Index: i, Left: &a[i], Right: &b[i]}
		}
	}
	switch {
	case len(a) > n:
		return &Divergence{Index: n, Left: &a[n]}
	case len(b) > n:
		return &Divergence{Index: n, Right: &b[n]}
	}
	return nil
}

func sameStep(a, b engine.StepEvent) bool {
	a.Seq, b.Seq = 0, 0
	a.RunID, b.RunID = "", ""
	return a == b
}

func describeStep(ev *engine.StepEvent) string {
	if ev == nil {
		return "<end>"
	}
	return fmt.Sprintf("%s:%s (topic=%s, cycle=%d, step=%d)", ev.Kind, ev.Name, ev.Topic, ev.Cycle, ev.Step)
}
