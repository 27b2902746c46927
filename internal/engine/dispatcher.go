package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/roach88/baboon/internal/subscription"
)

// Dispatcher invokes event subscriptions when their topic's permission
// fires on the primitive.
//
// Observers registered on the EventSource only enqueue; handlers run on
// the single goroutine that calls Run, in delivery order. A failing
// handler is logged and the dispatcher continues.
type Dispatcher struct {
	snapshot *subscription.Snapshot
	source   EventSource
	prim     Primitive
	cfg      config

	queue   *deliveryQueue
	unsubs  []Unsubscriber
	started bool
}

// NewDispatcher creates a dispatcher. prim receives the guard values
// pushed after each handler.
func NewDispatcher(snap *subscription.Snapshot, src EventSource, prim Primitive, opts ...Option) *Dispatcher {
	return &Dispatcher{
		snapshot: snap,
		source:   src,
		prim:     prim,
		cfg:      newConfig(opts),
		queue:    newDeliveryQueue(),
	}
}

// Permissions returns the distinct permission identifiers the dispatcher
// listens on, sorted.
func (d *Dispatcher) Permissions() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range d.snapshot.EventSubscriptions() {
		p := s.Permission()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Start subscribes to the event source. Events observed after Start are
// queued until Run handles them.
func (d *Dispatcher) Start() error {
	d.started = true
	for _, p := range d.Permissions() {
		u, err := d.source.SubscribeToEvent(p, func(id string) {
			d.queue.Enqueue(delivery{permission: id})
		})
		if err != nil {
			d.stop()
			return fmt.Errorf("subscribe to event %q: %w", p, err)
		}
		d.unsubs = append(d.unsubs, u)
	}
	return nil
}

// Run handles deliveries until ctx is done. Start is called first if it
// has not been.
//
// On cancellation the dispatcher unsubscribes, then handles the deliveries
// already queued before returning ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.started {
		if err := d.Start(); err != nil {
			return err
		}
	}
	defer d.stop()
	d.cfg.logger.Info("dispatcher starting", "permissions", len(d.unsubs))

	for {
		if dl, ok := d.queue.TryDequeue(); ok {
			d.handle(ctx, dl)
			continue
		}

		select {
		case <-ctx.Done():
			d.unsubscribe()
			drained := 0
			for dl, ok := d.queue.TryDequeue(); ok; dl, ok = d.queue.TryDequeue() {
				d.handle(ctx, dl)
				drained++
			}
			d.cfg.logger.Info("dispatcher stopping: context cancelled", "drained", drained)
			return ctx.Err()
		case <-d.queue.Wait():
		}
	}
}

func (d *Dispatcher) unsubscribe() {
	for _, u := range d.unsubs {
		u.Unsubscribe()
	}
	d.unsubs = nil
}

func (d *Dispatcher) stop() {
	d.unsubscribe()
	d.queue.Close()
}

// Deliver queues an event as if the source had observed it.
func (d *Dispatcher) Deliver(permission string) bool {
	return d.queue.Enqueue(delivery{permission: permission})
}

func (d *Dispatcher) handle(ctx context.Context, dl delivery) {
	for _, sub := range d.snapshot.EventsFor(dl.permission) {
		log := d.cfg.logger.With("topic", sub.Topic.Name, "handler", sub.Action.String())
		if err := safeInvoke(sub); err != nil {
			log.Error("event handler failed", "permission", dl.permission, "error", err)
			continue
		}
		d.record(ctx, StepEvent{Topic: sub.Topic.Name, Kind: StepHandled, Name: sub.Action.Member.Name})

		if len(sub.Topic.GuardCallbacks) == 0 {
			continue
		}
		for _, name := range sub.Topic.GuardCallbacks[0] {
			value, ok, err := evaluateGuard(sub.Guards, name)
			if err != nil {
				log.Error("guard provider panicked", "guard", name, "error", err)
				continue
			}
			if !ok {
				log.Error("guard has no binding, skipping", "guard", name)
				continue
			}
			if err := d.prim.SetGuard(name, value); err != nil {
				log.Error("guard push failed", "guard", name, "error", err)
				continue
			}
			d.record(ctx, StepEvent{Topic: sub.Topic.Name, Kind: StepGuard, Name: name, Value: value})
		}
	}
}

func safeInvoke(sub *subscription.EventSubscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return sub.Action.Invoke()
}

func (d *Dispatcher) record(ctx context.Context, ev StepEvent) {
	ev.Seq = d.cfg.clock.Next()
	ev.RunID = d.cfg.runID
	if d.cfg.recorder == nil {
		return
	}
	if err := d.cfg.recorder.RecordStep(context.WithoutCancel(ctx), ev); err != nil {
		d.cfg.logger.Error("record step failed", "kind", string(ev.Kind), "error", err)
	}
}
