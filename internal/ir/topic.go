package ir

import (
	"golang.org/x/text/unicode/norm"
)

// Topic is a named coordination contract binding a sequence of permission
// identifiers to guard-name groups and cycle-completion signals.
//
// Permission has length 1 for an event topic and length N for an N-step
// task chain. GuardCallbacks[i] lists the guards pushed after step i.
// FireCallbacks are fired perennially once a task chain completes a cycle.
type Topic struct {
	Name           string     `json:"name" yaml:"name"`
	Permission     []string   `json:"permission" yaml:"permission"`
	GuardCallbacks [][]string `json:"guardCallbacks" yaml:"guardCallbacks"`
	FireCallbacks  []string   `json:"fireCallbacks" yaml:"fireCallbacks"`
}

// Steps returns the number of permission steps of the topic.
func (t Topic) Steps() int {
	return len(t.Permission)
}

// WellFormed reports whether Permission and GuardCallbacks are index-aligned.
func (t Topic) WellFormed() bool {
	return len(t.Permission) == len(t.GuardCallbacks)
}

// GuardsAt returns the guard set for step i, wrapping modulo the number of
// guard sets. Returns nil when the topic declares no guard sets.
func (t Topic) GuardsAt(i int) []string {
	if len(t.GuardCallbacks) == 0 {
		return nil
	}
	return t.GuardCallbacks[i%len(t.GuardCallbacks)]
}

// Clone returns a deep copy so registry entries cannot be mutated through
// slices handed out to callers.
func (t Topic) Clone() Topic {
	out := Topic{Name: t.Name}
	if t.Permission != nil {
		out.Permission = append([]string{}, t.Permission...)
	}
	if t.FireCallbacks != nil {
		out.FireCallbacks = append([]string{}, t.FireCallbacks...)
	}
	if t.GuardCallbacks != nil {
		out.GuardCallbacks = make([][]string, len(t.GuardCallbacks))
		for i, set := range t.GuardCallbacks {
			out.GuardCallbacks[i] = append([]string{}, set...)
		}
	}
	return out
}

// NormalizeTopic applies the configuration defaults to a decoded topic:
//   - the name is NFC-normalized
//   - a nil GuardCallbacks becomes one empty set per permission
//   - nil guard sets become empty sets, duplicates inside a set are dropped
//   - a nil FireCallbacks becomes an empty slice
//
// An explicitly present GuardCallbacks of the wrong length is kept as is.
func NormalizeTopic(t Topic) Topic {
	out := t.Clone()
	out.Name = NormalizeName(t.Name)
	if t.GuardCallbacks == nil {
		out.GuardCallbacks = make([][]string, len(t.Permission))
	}
	for i, set := range out.GuardCallbacks {
		out.GuardCallbacks[i] = dedupe(set)
	}
	if out.Permission == nil {
		out.Permission = []string{}
	}
	if out.FireCallbacks == nil {
		out.FireCallbacks = []string{}
	}
	return out
}

// NormalizeName returns the NFC form of a topic or identifier name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

func dedupe(set []string) []string {
	out := make([]string, 0, len(set))
	seen := make(map[string]bool, len(set))
	for _, s := range set {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
