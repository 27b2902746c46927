// Package subscription binds actions to topics.
//
// Setup code subscribes event handlers and tasks on a Manager, then takes
// a Snapshot that execution reads. The Manager is not safe for concurrent
// use: subscriptions are made from the single setup goroutine, and once a
// snapshot is taken the manager is sealed.
package subscription

import (
	"reflect"
	"strings"

	"github.com/roach88/baboon/internal/action"
	"github.com/roach88/baboon/internal/ir"
	"github.com/roach88/baboon/internal/topic"
)

// Manager records event subscriptions and task chains.
type Manager struct {
	topics  *topic.Registry
	catalog *action.Catalog

	events     map[Key]*EventSubscription
	eventOrder []Key

	chains       []*TaskChain
	defaultChain map[string]*TaskChain

	sealed bool
}

// NewManager returns a manager resolving topics from reg and members
// from cat.
func NewManager(reg *topic.Registry, cat *action.Catalog) *Manager {
	return &Manager{
		topics:       reg,
		catalog:      cat,
		events:       make(map[Key]*EventSubscription),
		defaultChain: make(map[string]*TaskChain),
	}
}

// Catalog returns the catalog members are resolved from.
func (m *Manager) Catalog() *action.Catalog {
	return m.catalog
}

// Subscribe binds the member memberName of an instance owner to a topic.
// args are the argument prototypes used both to select the member and to
// invoke it.
//
// An event handler becomes an event subscription. A task is appended to
// the topic's default chain, with the guard set at the chain's current
// length.
func (m *Manager) Subscribe(topicName string, owner any, memberName string, args ...any) error {
	return m.subscribe(request{topic: topicName, owner: owner, member: memberName, args: args})
}

// SubscribeStatic is Subscribe for a static member of ownerType.
func (m *Manager) SubscribeStatic(topicName string, ownerType action.TypeToken, memberName string, args ...any) error {
	var owner any
	if !ownerType.IsZero() {
		owner = ownerType
	}
	return m.subscribe(request{topic: topicName, owner: owner, member: memberName, args: args, static: true})
}

// NewChain creates an independent task chain for a topic. Tasks
// subscribed through the returned builder accumulate in that chain
// instead of the topic's default chain.
func (m *Manager) NewChain(topicName string) (*ChainBuilder, error) {
	if m.sealed {
		return nil, &NotSubscribableError{Code: ErrCodeSealed, Topic: topicName}
	}
	t, err := m.lookupTopic(request{topic: topicName})
	if err != nil {
		return nil, err
	}
	r := request{topic: topicName}
	if !t.WellFormed() {
		return nil, r.reject(ErrCodeMalformedTopic, &malformedTopicError{topic: t})
	}
	if err := checkTaskTopic(t, r); err != nil {
		return nil, err
	}
	c := m.addChain(t)
	return &ChainBuilder{m: m, chain: c}, nil
}

// ChainBuilder subscribes tasks to one independent chain.
type ChainBuilder struct {
	m     *Manager
	chain *TaskChain
}

// Chain returns the chain being built.
func (b *ChainBuilder) Chain() *TaskChain {
	return b.chain
}

// Subscribe appends an instance task to the chain.
func (b *ChainBuilder) Subscribe(owner any, memberName string, args ...any) error {
	return b.m.subscribe(request{
		topic: b.chain.topic.Name, owner: owner, member: memberName, args: args, chain: b.chain,
	})
}

// SubscribeStatic appends a static task to the chain.
func (b *ChainBuilder) SubscribeStatic(ownerType action.TypeToken, memberName string, args ...any) error {
	var owner any
	if !ownerType.IsZero() {
		owner = ownerType
	}
	return b.m.subscribe(request{
		topic: b.chain.topic.Name, owner: owner, member: memberName, args: args, static: true, chain: b.chain,
	})
}

type request struct {
	topic  string
	owner  any
	member string
	args   []any
	static bool
	chain  *TaskChain
}

func (r request) reject(code string, err error) error {
	return &NotSubscribableError{Code: code, Topic: r.topic, Owner: r.owner, Member: r.member, Err: err}
}

func (m *Manager) subscribe(r request) error {
	if m.sealed {
		return r.reject(ErrCodeSealed, nil)
	}
	t, err := m.lookupTopic(r)
	if err != nil {
		return err
	}
	if r.owner == nil {
		return r.reject(ErrCodeNilOwner, nil)
	}
	if r.member == "" {
		return r.reject(ErrCodeEmptyMember, nil)
	}
	if !reflect.ValueOf(r.owner).Comparable() {
		return r.reject(ErrCodeNotComparable, nil)
	}

	act, err := m.catalog.Resolve(r.owner, r.member, r.args, r.static)
	if err != nil {
		return r.reject(ErrCodeUnresolved, err)
	}

	if !t.WellFormed() {
		return r.reject(ErrCodeMalformedTopic, &malformedTopicError{topic: t})
	}

	switch act.Member.Kind {
	case action.KindEventHandler:
		if r.chain != nil {
			return r.reject(ErrCodeNotATask, nil)
		}
		return m.subscribeEvent(r, t, act)
	default:
		return m.subscribeTask(r, t, act)
	}
}

func (m *Manager) lookupTopic(r request) (ir.Topic, error) {
	if strings.TrimSpace(r.topic) == "" {
		return ir.Topic{}, r.reject(ErrCodeEmptyTopic, nil)
	}
	t, err := m.topics.ByName(r.topic)
	if err != nil {
		return ir.Topic{}, r.reject(ErrCodeUnknownTopic, err)
	}
	return t, nil
}

func (m *Manager) subscribeEvent(r request, t ir.Topic, act *action.Action) error {
	key := Key{Owner: act.Owner, Member: act.Member}
	if prev, ok := m.events[key]; ok && prev.Topic.Name != t.Name {
		return r.reject(ErrCodeAlreadyBound, &alreadyBoundError{topic: prev.Topic.Name})
	}

	var names []string
	if len(t.GuardCallbacks) > 0 {
		names = t.GuardCallbacks[0]
	}
	guards, err := m.catalog.BindGuards(act.Owner, names)
	if err != nil {
		return r.reject(ErrCodeGuardUnresolved, err)
	}

	if _, ok := m.events[key]; !ok {
		m.eventOrder = append(m.eventOrder, key)
	}
	m.events[key] = &EventSubscription{Topic: t, Action: act, Guards: guards}
	return nil
}

func (m *Manager) subscribeTask(r request, t ir.Topic, act *action.Action) error {
	if err := checkTaskTopic(t, r); err != nil {
		return err
	}

	chain := r.chain
	if chain == nil {
		chain = m.defaultChain[t.Name]
	}
	idx := 0
	if chain != nil {
		idx = chain.Len() % len(t.Permission)
	}

	guards, err := m.catalog.BindGuards(act.Owner, t.GuardCallbacks[idx])
	if err != nil {
		return r.reject(ErrCodeGuardUnresolved, err)
	}

	if chain == nil {
		chain = m.addChain(t)
		m.defaultChain[t.Name] = chain
	}
	chain.steps = append(chain.steps, ChainStep{Action: act, Guards: guards})
	return nil
}

// checkTaskTopic rejects topics a task chain cannot run against.
func checkTaskTopic(t ir.Topic, r request) error {
	if len(t.Permission) == 0 {
		return r.reject(ErrCodeEmptyPermission, nil)
	}
	for _, p := range t.Permission {
		if p == "" {
			return r.reject(ErrCodeEmptyPermission, nil)
		}
	}
	return nil
}

func (m *Manager) addChain(t ir.Topic) *TaskChain {
	c := &TaskChain{id: len(m.chains) + 1, topic: t}
	m.chains = append(m.chains, c)
	return c
}

// EventSubscription returns the event subscription of the member that
// memberName and args resolve to on owner.
func (m *Manager) EventSubscription(owner any, memberName string, args ...any) (*EventSubscription, bool) {
	_, isType := owner.(action.TypeToken)
	act, err := m.catalog.Resolve(owner, memberName, args, isType)
	if err != nil {
		return nil, false
	}
	s, ok := m.events[Key{Owner: act.Owner, Member: act.Member}]
	return s, ok
}

// EventSubscriptions returns every event subscription in the order first
// subscribed.
func (m *Manager) EventSubscriptions() []*EventSubscription {
	out := make([]*EventSubscription, 0, len(m.eventOrder))
	for _, k := range m.eventOrder {
		out = append(out, m.events[k])
	}
	return out
}

// EventCount returns the number of event subscriptions.
func (m *Manager) EventCount() int {
	return len(m.events)
}

// TaskChains returns every chain in creation order.
func (m *Manager) TaskChains() []*TaskChain {
	return append([]*TaskChain(nil), m.chains...)
}

// Sealed reports whether a snapshot has been taken.
func (m *Manager) Sealed() bool {
	return m.sealed
}
