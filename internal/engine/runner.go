package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/baboon/internal/subscription"
)

// Run identifies one coordinator started by a Runner.
type Run struct {
	RunID   string
	ChainID int
	Topic   string
}

// Runner starts one coordinator per task chain of a snapshot and, when an
// event source is configured, a dispatcher for its event subscriptions.
//
// Coordinators are isolated: a failing coordinator does not cancel the
// others. Run returns once every coordinator has returned.
type Runner struct {
	snapshot *subscription.Snapshot
	prim     Primitive
	source   EventSource
	ids      RunIDGenerator
	opts     []Option
	logger   *slog.Logger

	mu   sync.Mutex
	runs []Run
}

// NewRunner creates a runner. ids names each coordinator run; opts apply
// to every coordinator and to the dispatcher. Unless opts carry a clock,
// all coordinators share one Clock.
func NewRunner(snap *subscription.Snapshot, prim Primitive, ids RunIDGenerator, opts ...Option) *Runner {
	cfg := newConfig(opts)
	shared := append([]Option{WithClock(cfg.clock), WithLogger(cfg.logger)}, opts...)
	return &Runner{
		snapshot: snap,
		prim:     prim,
		ids:      ids,
		opts:     shared,
		logger:   cfg.logger,
	}
}

// WithEvents makes Run dispatch primitive events from src to the
// snapshot's event subscriptions while coordinators run.
func (r *Runner) WithEvents(src EventSource) *Runner {
	r.source = src
	return r
}

// Runs returns the coordinator runs started so far, in chain order.
func (r *Runner) Runs() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Run(nil), r.runs...)
}

// Run starts every coordinator and waits for all of them.
//
// The returned error joins every coordinator failure. Coordinators that
// stop because ctx is done are not failures. The dispatcher, if any, is
// stopped when the last coordinator returns.
func (r *Runner) Run(ctx context.Context) error {
	chains := r.snapshot.TaskChains()
	r.logger.Info("runner starting", "chains", len(chains), "events", len(r.snapshot.EventSubscriptions()))

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	var dispatchDone chan error
	if r.source != nil {
		d := NewDispatcher(r.snapshot, r.source, r.prim, r.opts...)
		if err := d.Start(); err != nil {
			return err
		}
		dispatchDone = make(chan error, 1)
		go func() { dispatchDone <- d.Run(dispatchCtx) }()
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, chain := range chains {
		id := r.ids.Generate()
		r.mu.Lock()
		r.runs = append(r.runs, Run{RunID: id, ChainID: chain.ID(), Topic: chain.Topic().Name})
		r.mu.Unlock()

		c := NewCoordinator(chain, r.prim, append(r.opts, WithRunID(id))...)
		g.Go(func() error {
			err := c.Run(ctx)
			if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
				return nil
			}
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	// The group only supervises the goroutines. Closures never return an
	// error; every failure is collected in errs and joined below.
	_ = g.Wait()

	if dispatchDone != nil {
		stopDispatch()
		<-dispatchDone
	}

	if len(errs) > 0 {
		r.logger.Error("runner finished with failures", "failed", len(errs), "chains", len(chains))
		return errors.Join(errs...)
	}
	r.logger.Info("runner finished", "chains", len(chains))
	return nil
}
