package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/baboon/internal/engine"
	"github.com/roach88/baboon/internal/store"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Database      string
	RightDatabase string // defaults to Database
	Left          string
	Right         string
}

// DiffResult holds the comparison of two recorded runs.
type DiffResult struct {
	Left       string     `json:"left"`
	Right      string     `json:"right"`
	Identical  bool       `json:"identical"`
	LeftSteps  int        `json:"left_steps"`
	RightSteps int        `json:"right_steps"`
	Divergence *Divergent `json:"divergence,omitempty"`
}

// Divergent describes the first differing step.
type Divergent struct {
	Index int               `json:"index"`
	Left  *engine.StepEvent `json:"left,omitempty"`
	Right *engine.StepEvent `json:"right,omitempty"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the traces of two runs",
		Long: `Compare the recorded step traces of two coordinator runs.

Sequence numbers and run ids are ignored: two runs are identical when
they granted the same permissions, invoked the same tasks, pushed the
same guard values and fired the same callbacks in the same cycles.
Use --right-db to compare runs recorded in different databases.

Exit codes:
  0 - Traces are identical
  1 - Traces diverge
  2 - Command error (database not found, etc.)

Examples:
  baboon diff --db ./baboon.db --left run-a --right run-b
  baboon diff --db ./before.db --right-db ./after.db --left run-1 --right run-1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RightDatabase, "right-db", "", "database holding the right run (default --db)")
	cmd.Flags().StringVar(&opts.Left, "left", "", "left run id (required)")
	_ = cmd.MarkFlagRequired("left")
	cmd.Flags().StringVar(&opts.Right, "right", "", "right run id (required)")
	_ = cmd.MarkFlagRequired("right")

	return cmd
}

func runDiff(ctx context.Context, opts *DiffOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	left, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer left.Close()

	right := left
	if opts.RightDatabase != "" && opts.RightDatabase != opts.Database {
		if right, err = openExistingStore(opts.RightDatabase); err != nil {
			return err
		}
		defer right.Close()
	}

	result, err := DiffRuns(ctx, left, opts.Left, right, opts.Right)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare runs", err)
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Identical {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_DIVERGED", Message: "traces diverge"}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputDiffText(formatter, result)
	}

	if !result.Identical {
		return NewExitError(ExitFailure, fmt.Sprintf("runs %s and %s diverge", opts.Left, opts.Right))
	}
	return nil
}

// DiffRuns compares run leftID in left with run rightID in right. Both
// runs must exist.
func DiffRuns(ctx context.Context, left *store.Store, leftID string, right *store.Store, rightID string) (*DiffResult, error) {
	if _, err := left.ReadRun(ctx, leftID); err != nil {
		return nil, fmt.Errorf("run %s: %w", leftID, err)
	}
	if _, err := right.ReadRun(ctx, rightID); err != nil {
		return nil, fmt.Errorf("run %s: %w", rightID, err)
	}

	a, err := left.ReadSteps(ctx, store.StepFilter{RunID: leftID})
	if err != nil {
		return nil, err
	}
	b, err := right.ReadSteps(ctx, store.StepFilter{RunID: rightID})
	if err != nil {
		return nil, err
	}

	result := &DiffResult{
		Left:       leftID,
		Right:      rightID,
		LeftSteps:  len(a),
		RightSteps: len(b),
	}
	if d := store.CompareSteps(a, b); d != nil {
		result.Divergence = &Divergent{Index: d.Index, Left: d.Left, Right: d.Right}
		return result, nil
	}
	result.Identical = true
	return result, nil
}

func outputDiffText(formatter *OutputFormatter, result *DiffResult) {
	w := formatter.Writer
	if result.Identical {
		fmt.Fprintf(w, "✓ Runs %s and %s are identical (%d step(s))\n", result.Left, result.Right, result.LeftSteps)
		return
	}

	fmt.Fprintf(w, "✗ Runs %s and %s diverge\n\n", result.Left, result.Right)
	d := &store.Divergence{Index: result.Divergence.Index, Left: result.Divergence.Left, Right: result.Divergence.Right}
	fmt.Fprintf(w, "  %s\n", d)
	fmt.Fprintf(w, "  left: %d step(s), right: %d step(s)\n", result.LeftSteps, result.RightSteps)
}
