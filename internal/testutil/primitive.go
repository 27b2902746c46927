package testutil

import (
	"context"
	"sync"
)

// Call is one recorded interaction with a FakePrimitive.
type Call struct {
	Op        string // "request" or "guard"
	Name      string
	Perennial bool
	Value     bool
}

// FakePrimitive grants every permission immediately and records calls.
//
// Configure the exported fields before handing the primitive to a
// coordinator; they are read without locking afterwards.
type FakePrimitive struct {
	// FailPermission makes RequestPermission return the error for an id.
	FailPermission map[string]error

	// FailGuard makes SetGuard return the error for a guard name.
	FailGuard map[string]error

	// Block makes non-perennial requests for an id wait until ctx is done.
	Block map[string]bool

	// OnRequest is called for each non-perennial request after it is
	// recorded and before it is granted.
	OnRequest func(id string)

	mu     sync.Mutex
	calls  []Call
	guards map[string]bool
}

// NewFakePrimitive returns an empty fake.
func NewFakePrimitive() *FakePrimitive {
	return &FakePrimitive{guards: make(map[string]bool)}
}

// RequestPermission records the request and grants it unless configured
// otherwise.
func (p *FakePrimitive) RequestPermission(ctx context.Context, id string, perennial bool) error {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Op: "request", Name: id, Perennial: perennial})
	p.mu.Unlock()

	if err := p.FailPermission[id]; err != nil {
		return err
	}
	if !perennial && p.OnRequest != nil {
		p.OnRequest(id)
	}
	if !perennial && p.Block[id] {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// SetGuard records and stores the value.
func (p *FakePrimitive) SetGuard(name string, value bool) error {
	if err := p.FailGuard[name]; err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.guards == nil {
		p.guards = make(map[string]bool)
	}
	p.calls = append(p.calls, Call{Op: "guard", Name: name, Value: value})
	p.guards[name] = value
	return nil
}

// Guard returns the last value pushed for name.
func (p *FakePrimitive) Guard(name string) (value, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, ok = p.guards[name]
	return value, ok
}

// Calls returns every recorded call in order.
func (p *FakePrimitive) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Requests returns the ids of non-perennial requests in order.
func (p *FakePrimitive) Requests() []string {
	return p.names(func(c Call) bool { return c.Op == "request" && !c.Perennial })
}

// Fired returns the ids of perennial requests in order.
func (p *FakePrimitive) Fired() []string {
	return p.names(func(c Call) bool { return c.Op == "request" && c.Perennial })
}

// GuardPushes returns the names of pushed guards in order.
func (p *FakePrimitive) GuardPushes() []string {
	return p.names(func(c Call) bool { return c.Op == "guard" })
}

func (p *FakePrimitive) names(keep func(Call) bool) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.calls {
		if keep(c) {
			out = append(out, c.Name)
		}
	}
	return out
}
