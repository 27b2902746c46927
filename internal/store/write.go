package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/ir"
)

var _ engine.Recorder = (*Store)(nil)

// RecordRun inserts a run record.
// Uses ON CONFLICT(run_id) DO NOTHING for idempotency - recording the same
// run twice is silently ignored.
func (s *Store) RecordRun(ctx context.Context, run engine.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, chain_id, topic, topic_hash, steps, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		run.RunID,
		run.ChainID,
		run.Topic,
		run.TopicHash,
		run.Steps,
		run.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecordStep appends a step event.
// Uses ON CONFLICT DO NOTHING for idempotency - a (run_id, seq) pair is
// written once.
//
// Note: A step with a RunID must belong to a recorded run (foreign key
// constraint). Steps without a RunID (dispatcher events) are stored with a
// NULL run_id.
func (s *Store) RecordStep(ctx context.Context, ev engine.StepEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_events
		(run_id, seq, chain_id, topic, cycle, step, kind, name, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		nullString(ev.RunID),
		ev.Seq,
		ev.ChainID,
		ev.Topic,
		ev.Cycle,
		ev.Step,
		string(ev.Kind),
		ev.Name,
		boolToInt(ev.Value),
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
