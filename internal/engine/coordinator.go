package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/ir"
	"github.com/roach88/baboon/internal/subscription"
)

// Coordinator runs one task chain.
//
// A Coordinator is used by exactly one goroutine: Run must not be called
// concurrently or twice in parallel.
type Coordinator struct {
	chain *subscription.TaskChain
	topic ir.Topic
	prim  Primitive
	cfg   config

	cycle int
}

// NewCoordinator creates a coordinator for chain using prim.
func NewCoordinator(chain *subscription.TaskChain, prim Primitive, opts ...Option) *Coordinator {
	return &Coordinator{
		chain: chain,
		topic: chain.Topic(),
		prim:  prim,
		cfg:   newConfig(opts),
	}
}

// Cycles returns the number of completed cycles. Only meaningful after Run
// returns.
func (c *Coordinator) Cycles() int {
	return c.cycle
}

// RunID returns the run id the coordinator was configured with.
func (c *Coordinator) RunID() string {
	return c.cfg.runID
}

// Run executes the chain until ctx is done, the configured number of
// cycles completes, or a step fails.
//
// A cancelled run returns ctx.Err() wrapped. Any other failure is an
// *ExecutionError.
func (c *Coordinator) Run(ctx context.Context) error {
	n := c.chain.Len()
	if n == 0 || !c.chain.Complete() {
		return c.fail(ErrCodeInvalidChain, 0, "",
			fmt.Sprintf("chain has %d steps for %d permissions", n, len(c.topic.Permission)), nil)
	}
	if !c.topic.WellFormed() {
		return c.fail(ErrCodeInvalidChain, 0, "",
			fmt.Sprintf("topic has %d guard sets for %d permissions", len(c.topic.GuardCallbacks), len(c.topic.Permission)), nil)
	}

	log := c.cfg.logger.With("topic", c.topic.Name, "chain", c.chain.ID(), "run_id", c.cfg.runID)
	log.Info("coordinator starting", "steps", n)
	c.recordRun(ctx, log)

	i := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Info("coordinator stopping: context cancelled", "cycles", c.cycle)
			return fmt.Errorf("coordinator %d (%s): %w", c.chain.ID(), c.topic.Name, err)
		}

		perm := c.topic.Permission[i]
		if err := c.prim.RequestPermission(ctx, perm, false); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Info("coordinator stopping: context cancelled", "cycles", c.cycle)
				return fmt.Errorf("coordinator %d (%s): %w", c.chain.ID(), c.topic.Name, ctxErr)
			}
			return c.fail(ErrCodeAdmissionFailed, i, perm, "permission request failed", err)
		}
		c.record(ctx, log, StepEvent{Step: i, Kind: StepPermission, Name: perm})

		step := c.chain.Step(i)
		if err := c.invoke(step.Action); err != nil {
			return c.stepFailure(i, step.Action, err)
		}
		c.record(ctx, log, StepEvent{Step: i, Kind: StepInvoke, Name: step.Action.Member.Name})

		if err := c.pushGuards(ctx, log, i, step.Guards); err != nil {
			return err
		}

		i = (i + 1) % n
		if i != 0 {
			continue
		}

		for _, cb := range c.topic.FireCallbacks {
			if err := c.prim.RequestPermission(ctx, cb, true); err != nil {
				return c.fail(ErrCodeFireFailed, n-1, cb, "cycle callback failed", err)
			}
			c.record(ctx, log, StepEvent{Step: n - 1, Kind: StepFire, Name: cb})
		}
		c.cycle++
		log.Debug("cycle complete", "cycle", c.cycle)

		if c.cfg.maxCycles > 0 && c.cycle >= c.cfg.maxCycles {
			log.Info("coordinator stopping: cycle limit reached", "cycles", c.cycle)
			return nil
		}
	}
}

// pushGuards evaluates and pushes the guard set of step i. A guard without
// a binding is logged and skipped.
func (c *Coordinator) pushGuards(ctx context.Context, log *slog.Logger, i int, guards *action.GuardBinding) error {
	for _, name := range c.topic.GuardCallbacks[i] {
		value, ok, err := evaluateGuard(guards, name)
		if err != nil {
			return c.fail(ErrCodeActionPanic, i, name, "guard provider panicked", err)
		}
		if !ok {
			log.Error("guard has no binding, skipping", "guard", name, "step", i)
			c.record(ctx, log, StepEvent{Step: i, Kind: StepGuardSkipped, Name: name})
			continue
		}
		if err := c.prim.SetGuard(name, value); err != nil {
			return c.fail(ErrCodeGuardFailed, i, name, "guard push failed", err)
		}
		c.record(ctx, log, StepEvent{Step: i, Kind: StepGuard, Name: name, Value: value})
	}
	return nil
}

// invoke runs an action, converting a panic into a *PanicError.
func (c *Coordinator) invoke(a *action.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return a.Invoke()
}

func evaluateGuard(b *action.GuardBinding, name string) (value, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	value, ok = b.Evaluate(name)
	return value, ok, nil
}

func (c *Coordinator) stepFailure(i int, a *action.Action, err error) error {
	if _, ok := err.(*PanicError); ok {
		return c.fail(ErrCodeActionPanic, i, a.Member.Name, "action panicked", err)
	}
	return c.fail(ErrCodeActionFailed, i, a.Member.Name, "action returned an error", err)
}

func (c *Coordinator) fail(code ExecutionErrorCode, step int, target, msg string, err error) error {
	ee := &ExecutionError{
		Code:    code,
		Message: msg,
		RunID:   c.cfg.runID,
		ChainID: c.chain.ID(),
		Topic:   c.topic.Name,
		Step:    step,
		Target:  target,
		Err:     err,
	}
	c.cfg.logger.Error("coordinator failed",
		"topic", c.topic.Name,
		"chain", c.chain.ID(),
		"run_id", c.cfg.runID,
		"code", string(code),
		"step", step,
		"target", target,
		"error", err,
	)
	return ee
}

func (c *Coordinator) recordRun(ctx context.Context, log *slog.Logger) {
	if c.cfg.recorder == nil {
		return
	}
	hash, err := ir.TopicHash(c.topic)
	if err != nil {
		log.Warn("topic hash failed", "error", err)
	}
	run := RunInfo{
		RunID:         c.cfg.runID,
		ChainID:       c.chain.ID(),
		Topic:         c.topic.Name,
		TopicHash:     hash,
		Steps:         c.chain.Len(),
		EngineVersion: ir.EngineVersion,
	}
	if err := c.cfg.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("record run failed", "error", err)
	}
}

// record stamps ev and hands it to the recorder. The clock advances even
// without a recorder so seq values do not depend on recording.
func (c *Coordinator) record(ctx context.Context, log *slog.Logger, ev StepEvent) {
	ev.Seq = c.cfg.clock.Next()
	ev.RunID = c.cfg.runID
	ev.ChainID = c.chain.ID()
	ev.Topic = c.topic.Name
	ev.Cycle = c.cycle
	if c.cfg.recorder == nil {
		return
	}
	if err := c.cfg.recorder.RecordStep(context.WithoutCancel(ctx), ev); err != nil {
		log.Error("record step failed", "kind", string(ev.Kind), "name", ev.Name, "error", err)
	}
}
