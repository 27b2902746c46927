package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTopic = "baboon/topic/v1"
	DomainNet   = "baboon/net/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TopicHash computes the content hash of a topic. Two topics with the same
// name, permissions, guard sets and fire callbacks hash identically.
func TopicHash(t Topic) (string, error) {
	guards := t.GuardCallbacks
	if guards == nil {
		guards = [][]string{}
	}
	obj := map[string]any{
		"name":           t.Name,
		"permission":     nonNil(t.Permission),
		"guardCallbacks": guards,
		"fireCallbacks":  nonNil(t.FireCallbacks),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TopicHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTopic, canonical), nil
}

// SpecHash computes a hash over a set of topics, independent of their order.
// Recorded with every execution run so traces can be tied to configuration.
func SpecHash(topics []Topic) (string, error) {
	hashes := make([]string, 0, len(topics))
	for _, t := range topics {
		h, err := TopicHash(t)
		if err != nil {
			return "", err
		}
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	canonical, err := MarshalCanonical(hashes)
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTopic, canonical), nil
}

// NetHash computes the content hash of a net specification.
func NetHash(n NetSpec) (string, error) {
	transitions := make(map[string]any, len(n.Transitions))
	for name, tr := range n.Transitions {
		transitions[name] = map[string]any{
			"in":       nonNilCounts(tr.In),
			"out":      nonNilCounts(tr.Out),
			"guard":    tr.Guard,
			"negate":   tr.Negate,
			"informed": tr.Informed,
		}
	}
	guards := n.Guards
	if guards == nil {
		guards = map[string]bool{}
	}
	obj := map[string]any{
		"places":      nonNilCounts(n.Places),
		"transitions": transitions,
		"guards":      guards,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("NetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNet, canonical), nil
}

// MustTopicHash is like TopicHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTopicHash(t Topic) string {
	h, err := TopicHash(t)
	if err != nil {
		panic(err)
	}
	return h
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
