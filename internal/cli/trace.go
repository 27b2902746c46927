package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string   // optional - restrict to one coordinator run
	Topic    string   // optional - restrict to one topic
	Kinds    []string // optional - restrict to step kinds
	Events   bool     // only dispatcher events
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Runs     []engine.RunInfo   `json:"runs"`
	Timeline []engine.StepEvent `json:"timeline"`
	Stats    TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`

	// Cycles is, per run id, the number of cycles that fired their
	// callbacks. Runs of topics without callbacks are absent.
	Cycles map[string]int `json:"cycles,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded coordinator steps",
		Long: `Show the execution trace recorded by the SQLite store.

Lists the matching coordinator runs and their steps in sequence order:
permissions granted, tasks invoked, guards pushed and cycle callbacks
fired. Event handler steps recorded by the dispatcher have no run.

Examples:
  baboon trace --db ./baboon.db
  baboon trace --db ./baboon.db --run 0192...
  baboon trace --db ./baboon.db --topic topic3 --kind guard --kind fire
  baboon trace --db ./baboon.db --events --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "filter to a run id")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "filter to a topic")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "filter to step kinds (permission, invoke, guard, guard_skipped, fire, event)")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "only show event handler steps")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	kinds, err := parseKinds(opts.Kinds)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := BuildTrace(ctx, st, store.StepFilter{
		RunID:   opts.RunID,
		Topic:   opts.Topic,
		Kinds:   kinds,
		Unowned: opts.Events,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// BuildTrace reads the runs and steps that match f.
func BuildTrace(ctx context.Context, st *store.Store, f store.StepFilter) (*TraceResult, error) {
	var runs []engine.RunInfo
	switch {
	case f.Unowned:
		runs = []engine.RunInfo{}
	case f.RunID != "":
		run, err := st.ReadRun(ctx, f.RunID)
		if err != nil {
			return nil, err
		}
		runs = []engine.RunInfo{run}
	default:
		var err error
		if runs, err = st.ReadRuns(ctx, f.Topic); err != nil {
			return nil, err
		}
	}

	steps, err := st.ReadSteps(ctx, f)
	if err != nil {
		return nil, err
	}

	stats := TraceStats{
		TotalEvents: len(steps),
		ByKind:      make(map[string]int),
		Cycles:      make(map[string]int),
	}
	for _, ev := range steps {
		stats.ByKind[string(ev.Kind)]++
		if ev.Kind == engine.StepFire && ev.RunID != "" {
			stats.Cycles[ev.RunID] = max(stats.Cycles[ev.RunID], ev.Cycle+1)
		}
	}
	return &TraceResult{Runs: runs, Timeline: steps, Stats: stats}, nil
}

// openExistingStore opens a database without creating it.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

var stepKinds = []engine.StepKind{
	engine.StepPermission,
	engine.StepInvoke,
	engine.StepGuard,
	engine.StepGuardSkipped,
	engine.StepFire,
	engine.StepHandled,
}

func parseKinds(names []string) ([]engine.StepKind, error) {
	var kinds []engine.StepKind
	for _, name := range names {
		k := engine.StepKind(name)
		if !slices.Contains(stepKinds, k) {
			return nil, fmt.Errorf("unknown step kind %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result *TraceResult, verbose bool) {
	fmt.Fprintln(w, "=== Runs ===")
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "  (no runs)")
	}
	for _, run := range result.Runs {
		fmt.Fprintf(w, "  %s chain %d %s (%d step(s))\n", truncateID(run.RunID), run.ChainID, run.Topic, run.Steps)
		if verbose {
			fmt.Fprintf(w, "       Topic hash: %s\n", run.TopicHash)
			fmt.Fprintf(w, "       Engine: %s\n", run.EngineVersion)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatStep(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	for _, k := range stepKinds {
		if n := result.Stats.ByKind[string(k)]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", string(k)+":", n)
		}
	}
}

// formatStep formats a single step for text output.
func formatStep(w io.Writer, ev engine.StepEvent, verbose bool) {
	switch ev.Kind {
	case engine.StepGuard:
		fmt.Fprintf(w, "  [%d] %s c%d s%d GUARD %s=%t\n", ev.Seq, ev.Topic, ev.Cycle, ev.Step, ev.Name, ev.Value)
	case engine.StepHandled:
		fmt.Fprintf(w, "  [%d] %s EVENT %s\n", ev.Seq, ev.Topic, ev.Name)
	default:
		fmt.Fprintf(w, "  [%d] %s c%d s%d %s %s\n", ev.Seq, ev.Topic, ev.Cycle, ev.Step, kindLabel(ev.Kind), ev.Name)
	}
	if verbose && ev.RunID != "" {
		fmt.Fprintf(w, "       Run: %s\n", truncateID(ev.RunID))
	}
}

func kindLabel(k engine.StepKind) string {
	switch k {
	case engine.StepPermission:
		return "PERM"
	case engine.StepInvoke:
		return "INV"
	case engine.StepGuardSkipped:
		return "SKIP"
	case engine.StepFire:
		return "FIRE"
	default:
		return string(k)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
