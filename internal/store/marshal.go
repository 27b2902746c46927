package store

import (
	"fmt"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/ir"
)

// MarshalSteps renders steps as canonical JSON, one object per line.
//
// Run ids and seq values are omitted so traces from different runs of
// the same scenario are byte-identical. Golden files use this format.
func MarshalSteps(steps []engine.StepEvent) ([]byte, error) {
	var out []byte
	for i, ev := range steps {
		line, err := ir.MarshalCanonical(stepObject(ev))
		if err != nil {
			return nil, fmt.Errorf("marshal step %d: %w", i, err)
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}

func stepObject(ev engine.StepEvent) map[string]any {
	obj := map[string]any{
		"chain": ev.ChainID,
		"cycle": ev.Cycle,
		"kind":  string(ev.Kind),
		"name":  ev.Name,
		"step":  ev.Step,
		"topic": ev.Topic,
	}
	if ev.Kind == engine.StepGuard {
		obj["value"] = ev.Value
	}
	return obj
}
