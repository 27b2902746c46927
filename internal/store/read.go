package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/baboon/internal/engine"
)

// StepFilter narrows ReadSteps. Zero fields match everything.
type StepFilter struct {
	RunID string
	Topic string
	Kinds []engine.StepKind

	// Unowned selects only events without a run (dispatcher events).
	// RunID is ignored when set.
	Unowned bool
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (engine.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, chain_id, topic, topic_hash, steps, engine_version
		FROM runs
		WHERE run_id = ?
	`, runID)

	var run engine.RunInfo
	err := row.Scan(&run.RunID, &run.ChainID, &run.Topic, &run.TopicHash, &run.Steps, &run.EngineVersion)
	if err != nil {
		return engine.RunInfo{}, err
	}
	return run, nil
}

// ReadRuns returns every run in the order it was recorded. An empty topic
// matches all runs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ReadRuns(ctx context.Context, topic string) ([]engine.RunInfo, error) {
	query := `
		SELECT run_id, chain_id, topic, topic_hash, steps, engine_version
		FROM runs
	`
	var args []any
	if topic != "" {
		query += " WHERE topic = ?"
		args = append(args, topic)
	}
	query += " ORDER BY ord ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []engine.RunInfo{}
	for rows.Next() {
		var run engine.RunInfo
		if err := rows.Scan(&run.RunID, &run.ChainID, &run.Topic, &run.TopicHash, &run.Steps, &run.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the step events matching f, ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadSteps(ctx context.Context, f StepFilter) ([]engine.StepEvent, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.Unowned:
		where = append(where, "run_id IS NULL")
	case f.RunID != "":
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Topic != "" {
		where = append(where, "topic = ?")
		args = append(args, f.Topic)
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}

	query := `
		SELECT run_id, seq, chain_id, topic, cycle, step, kind, name, value
		FROM step_events
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []engine.StepEvent{}
	for rows.Next() {
		ev, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty store.
// A runner resuming into the same store starts its clock after it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM step_events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanStep(rows *sql.Rows) (engine.StepEvent, error) {
	var (
		ev    engine.StepEvent
		runID sql.NullString
		kind  string
		value int
	)
	if err := rows.Scan(&runID, &ev.Seq, &ev.ChainID, &ev.Topic, &ev.Cycle, &ev.Step, &kind, &ev.Name, &value); err != nil {
		return engine.StepEvent{}, fmt.Errorf("scan step: %w", err)
	}
	ev.RunID = runID.String
	ev.Kind = engine.StepKind(kind)
	ev.Value = value != 0
	return ev, nil
}
