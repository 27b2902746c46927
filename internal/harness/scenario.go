package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/baboon/internal/ir"
)

// DefaultTimeout bounds a scenario whose chains never finish, for example
// because the net deadlocks.
const DefaultTimeout = 5 * time.Second

// Scenario defines an end-to-end coordination scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists topic spec files (.cue, .yaml, .yml, .json) to load.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs,omitempty"`

	// Topics declares topics inline, in the YAML topic file format.
	Topics yaml.Node `yaml:"topics,omitempty"`

	// Net configures the reference monitor. Without a net (inline or from
	// Specs) every permission is granted immediately.
	Net *ir.NetSpec `yaml:"net,omitempty"`

	// Workers are the scripted owners of tasks, event handlers and guards.
	Workers []Worker `yaml:"workers"`

	// Subscriptions wire worker members to topics, in order.
	Subscriptions []Subscription `yaml:"subscriptions"`

	// MaxCycles is the number of cycles every chain runs.
	MaxCycles int `yaml:"max_cycles"`

	// Timeout bounds the run. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Assertions validate the call log, trace and final marking.
	Assertions []Assertion `yaml:"assertions"`
}

// Worker is a scripted owner. Every member appends "<name>.<member>" to the
// scenario call log when invoked.
type Worker struct {
	Name string `yaml:"name"`

	// Tasks and Events name the worker's task and event handler members.
	Tasks  []string `yaml:"tasks,omitempty"`
	Events []string `yaml:"events,omitempty"`

	// Fail and Panic name members that return an error or panic after
	// being logged.
	Fail  []string `yaml:"fail,omitempty"`
	Panic []string `yaml:"panic,omitempty"`

	// Guards declares guard providers with their initial values.
	Guards map[string]bool `yaml:"guards,omitempty"`

	// Toggle names guards that flip after every evaluation.
	Toggle []string `yaml:"toggle,omitempty"`
}

// Subscription subscribes a worker member to a topic. Subscriptions sharing
// a Chain label build one explicit chain; without a label task members
// join the topic's default chain.
type Subscription struct {
	Topic  string `yaml:"topic"`
	Worker string `yaml:"worker"`
	Member string `yaml:"member"`
	Chain  string `yaml:"chain,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Calls is used by calls and call_order.
	Calls []string `yaml:"calls,omitempty"`

	// Call and Count are used by call_count.
	Call  string `yaml:"call,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Guards is used by guard_pushes.
	Guards []string `yaml:"guards,omitempty"`

	// Fired is used by fired.
	Fired []string `yaml:"fired,omitempty"`

	// Marking is used by final_marking. Subset match.
	Marking map[string]int `yaml:"marking,omitempty"`

	// Code is used by error.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertCalls        = "calls"
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertGuardPushes  = "guard_pushes"
	AssertFired        = "fired"
	AssertFinalMarking = "final_marking"
	AssertError        = "error"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}
	for _, specPath := range scenario.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", specPath)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates a scenario. Spec paths are left as
// written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 && s.Topics.Kind == 0 {
		return fmt.Errorf("specs or topics is required")
	}
	if s.MaxCycles <= 0 {
		return fmt.Errorf("max_cycles must be positive")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	workers := make(map[string]map[string]bool, len(s.Workers))
	for i, w := range s.Workers {
		if w.Name == "" {
			return fmt.Errorf("workers[%d]: name is required", i)
		}
		if workers[w.Name] != nil {
			return fmt.Errorf("workers[%d]: duplicate worker %q", i, w.Name)
		}
		members := make(map[string]bool)
		for _, m := range append(append([]string{}, w.Tasks...), w.Events...) {
			if members[m] {
				return fmt.Errorf("workers[%d]: member %q declared twice", i, m)
			}
			members[m] = true
		}
		for _, m := range append(append([]string{}, w.Fail...), w.Panic...) {
			if !members[m] {
				return fmt.Errorf("workers[%d]: %q is not a task or event of %s", i, m, w.Name)
			}
		}
		for _, g := range w.Toggle {
			if _, ok := w.Guards[g]; !ok {
				return fmt.Errorf("workers[%d]: toggled guard %q is not declared", i, g)
			}
		}
		workers[w.Name] = members
	}

	for i, sub := range s.Subscriptions {
		if sub.Topic == "" {
			return fmt.Errorf("subscriptions[%d]: topic is required", i)
		}
		if workers[sub.Worker] == nil {
			return fmt.Errorf("subscriptions[%d]: unknown worker %q", i, sub.Worker)
		}
		if sub.Member == "" {
			return fmt.Errorf("subscriptions[%d]: member is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCalls:
		// An empty list asserts that nothing was called.
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertGuardPushes, AssertFired:
	case AssertFinalMarking:
		if len(a.Marking) == 0 {
			return fmt.Errorf("assertions[%d]: marking is required for final_marking", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
