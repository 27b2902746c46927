package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(runID, topic string, chainID, steps int) engine.RunInfo {
	return engine.RunInfo{
		RunID:         runID,
		ChainID:       chainID,
		Topic:         topic,
		TopicHash:     "test-hash",
		Steps:         steps,
		EngineVersion: ir.EngineVersion,
	}
}

// recordTwoStepCycle records one cycle of a p1/t1/g1, p2/t2/g2 chain
// firing done, with seq values starting at base+1.
func recordTwoStepCycle(t *testing.T, s *Store, runID string, base int64, cycle int) {
	t.Helper()
	steps := []engine.StepEvent{
		{Step: 0, Kind: engine.StepPermission, Name: "p1"},
		{Step: 0, Kind: engine.StepInvoke, Name: "t1"},
		{Step: 0, Kind: engine.StepGuard, Name: "g1", Value: true},
		{Step: 1, Kind: engine.StepPermission, Name: "p2"},
		{Step: 1, Kind: engine.StepInvoke, Name: "t2"},
		{Step: 1, Kind: engine.StepGuard, Name: "g2"},
		{Step: 1, Kind: engine.StepFire, Name: "done"},
	}
	for i, ev := range steps {
		ev.Seq = base + int64(i) + 1
		ev.RunID = runID
		ev.ChainID = 1
		ev.Topic = "topic3"
		ev.Cycle = cycle
		if err := s.RecordStep(context.Background(), ev); err != nil {
			t.Fatalf("RecordStep(%d) failed: %v", i, err)
		}
	}
}
