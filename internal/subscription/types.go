package subscription

import (
	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/ir"
)

// Key identifies an event subscription: an owner and the resolved member.
type Key struct {
	Owner  any
	Member *action.Member
}

// EventSubscription binds one event handler to one topic.
type EventSubscription struct {
	Topic  ir.Topic
	Action *action.Action

	// Guards is bound over the topic's first guard set, and is empty for a
	// topic without steps.
	Guards *action.GuardBinding
}

// Permission returns the primitive identifier whose events invoke the
// handler, or "" when the topic has no steps.
func (s *EventSubscription) Permission() string {
	if len(s.Topic.Permission) == 0 {
		return ""
	}
	return s.Topic.Permission[0]
}

// ChainStep is one action of a task chain and the guards pushed after it.
type ChainStep struct {
	Action *action.Action
	Guards *action.GuardBinding
}

// TaskChain is the ordered list of task steps for one topic.
type TaskChain struct {
	id    int
	topic ir.Topic
	steps []ChainStep
}

// ID numbers chains in creation order, starting at 1.
func (c *TaskChain) ID() int {
	return c.id
}

// Topic returns the topic the chain runs against.
func (c *TaskChain) Topic() ir.Topic {
	return c.topic.Clone()
}

// Len returns the number of steps.
func (c *TaskChain) Len() int {
	return len(c.steps)
}

// Step returns step i.
func (c *TaskChain) Step(i int) ChainStep {
	return c.steps[i]
}

// Steps returns a copy of the steps.
func (c *TaskChain) Steps() []ChainStep {
	return append([]ChainStep(nil), c.steps...)
}

// Complete reports whether the chain has one step per permission.
func (c *TaskChain) Complete() bool {
	return len(c.steps) == len(c.topic.Permission)
}

// NewTaskChain builds a chain outside a Manager, for collaborators that
// drive chains directly such as tests. Chains built by a Manager are
// numbered by it; id is taken as given here.
func NewTaskChain(id int, t ir.Topic, steps ...ChainStep) *TaskChain {
	return &TaskChain{id: id, topic: t.Clone(), steps: append([]ChainStep(nil), steps...)}
}
