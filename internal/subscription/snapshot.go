package subscription

import (
	"errors"

	"github.com/roach88/baboon/internal/ir"
)

// Snapshot is the immutable result of setup. Execution coordinators and
// the event dispatcher read it concurrently.
type Snapshot struct {
	topics []ir.Topic
	chains []*TaskChain
	events []*EventSubscription
}

// Snapshot validates the recorded chains and seals the manager. Every
// chain must have exactly one step per permission of its topic; all
// mismatches are reported together and the manager stays open.
func (m *Manager) Snapshot() (*Snapshot, error) {
	if m.sealed {
		return nil, &NotSubscribableError{Code: ErrCodeSealed}
	}

	var errs []error
	for _, c := range m.chains {
		if c.Complete() {
			continue
		}
		errs = append(errs, &NotSubscribableError{
			Code:  ErrCodeChainLength,
			Topic: c.topic.Name,
			Err: &chainLengthError{
				chain: c.id, topic: c.topic.Name, steps: len(c.steps), want: len(c.topic.Permission),
			},
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	m.sealed = true
	return &Snapshot{
		topics: m.topics.Topics(),
		chains: m.TaskChains(),
		events: m.EventSubscriptions(),
	}, nil
}

// Topics returns the topics known at setup.
func (s *Snapshot) Topics() []ir.Topic {
	out := make([]ir.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}

// TaskChains returns the chains in creation order.
func (s *Snapshot) TaskChains() []*TaskChain {
	return append([]*TaskChain(nil), s.chains...)
}

// EventSubscriptions returns the event subscriptions in subscription order.
func (s *Snapshot) EventSubscriptions() []*EventSubscription {
	return append([]*EventSubscription(nil), s.events...)
}

// EventsFor returns the event subscriptions whose handlers run on events
// of the given permission identifier.
func (s *Snapshot) EventsFor(permission string) []*EventSubscription {
	var out []*EventSubscription
	for _, e := range s.events {
		if e.Permission() == permission {
			out = append(out, e)
		}
	}
	return out
}
