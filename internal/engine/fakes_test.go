package engine

import (
	"errors"
	"sync"
)

// fakeSource is an EventSource driven by Emit.
type fakeSource struct {
	mu           sync.Mutex
	observers    map[string]map[int]func(id string)
	next         int
	fail         map[string]error
	unsubscribed int
}

func newFakeSource() *fakeSource {
	return &fakeSource{observers: make(map[string]map[int]func(id string))}
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }

func (s *fakeSource) SubscribeToEvent(id string, observer func(id string)) (Unsubscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[id]; err != nil {
		return nil, err
	}
	if s.observers[id] == nil {
		s.observers[id] = make(map[int]func(id string))
	}
	key := s.next
	s.next++
	s.observers[id][key] = observer
	return unsubscribeFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers[id], key)
		s.unsubscribed++
	}), nil
}

// Emit notifies every observer of id and reports how many there were.
func (s *fakeSource) Emit(id string) int {
	s.mu.Lock()
	obs := make([]func(string), 0, len(s.observers[id]))
	for _, o := range s.observers[id] {
		obs = append(obs, o)
	}
	s.mu.Unlock()
	for _, o := range obs {
		o(id)
	}
	return len(obs)
}

func (s *fakeSource) Observed(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers[id])
}

func (s *fakeSource) Unsubscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

var errSourceDown = errors.New("event source unavailable")
