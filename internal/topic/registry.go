// Package topic holds the loaded set of topics, keyed by name.
//
// A Registry is populated once at startup and is read-only afterwards.
// Names are NFC-normalized on load and on lookup, so "caf\u00e9" and
// "cafe\u0301" refer to the same topic.
package topic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/baboon/internal/ir"
)

// ErrTopicNotFound is returned by ByName for an unknown topic.
var ErrTopicNotFound = errors.New("topic not found")

// Load error codes.
const (
	ErrCodeDuplicate = "DUPLICATE_TOPIC"
	ErrCodeEmptyName = "EMPTY_NAME"
)

// LoadError reports a topic set that cannot be loaded.
type LoadError struct {
	Code  string
	Topic string
	Index int
}

func (e *LoadError) Error() string {
	switch e.Code {
	case ErrCodeDuplicate:
		return fmt.Sprintf("topic load: duplicate topic %q at index %d", e.Topic, e.Index)
	case ErrCodeEmptyName:
		return fmt.Sprintf("topic load: topic at index %d has no name", e.Index)
	default:
		return fmt.Sprintf("topic load: %s: %q", e.Code, e.Topic)
	}
}

// IsLoadError returns true if err is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Registry maps topic names to topics.
type Registry struct {
	topics map[string]ir.Topic
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]ir.Topic)}
}

// Load builds a registry from decoded topics. Topics are normalized
// (see ir.NormalizeTopic). Duplicate or empty names fail the whole load.
func Load(topics []ir.Topic) (*Registry, error) {
	r := NewRegistry()
	for i, t := range topics {
		n := ir.NormalizeTopic(t)
		if strings.TrimSpace(n.Name) == "" {
			return nil, &LoadError{Code: ErrCodeEmptyName, Index: i}
		}
		if _, dup := r.topics[n.Name]; dup {
			return nil, &LoadError{Code: ErrCodeDuplicate, Topic: n.Name, Index: i}
		}
		r.topics[n.Name] = n
		r.order = append(r.order, n.Name)
	}
	return r, nil
}

// ByName returns a copy of the named topic.
func (r *Registry) ByName(name string) (ir.Topic, error) {
	t, ok := r.topics[ir.NormalizeName(name)]
	if !ok {
		return ir.Topic{}, fmt.Errorf("%w: %q", ErrTopicNotFound, name)
	}
	return t.Clone(), nil
}

// Register adds or replaces a topic. Intended for tests that need to
// re-register a topic with a different shape.
func (r *Registry) Register(t ir.Topic) {
	n := ir.NormalizeTopic(t)
	if _, exists := r.topics[n.Name]; !exists {
		r.order = append(r.order, n.Name)
	}
	r.topics[n.Name] = n
}

// Names returns topic names in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of topics.
func (r *Registry) Len() int {
	return len(r.topics)
}

// Topics returns a copy of every topic in load order.
func (r *Registry) Topics() []ir.Topic {
	out := make([]ir.Topic, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.topics[name].Clone())
	}
	return out
}
