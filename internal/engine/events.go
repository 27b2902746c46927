package engine

import "context"

// StepKind identifies what a StepEvent records.
type StepKind string

const (
	StepPermission   StepKind = "permission"
	StepInvoke       StepKind = "invoke"
	StepGuard        StepKind = "guard"
	StepGuardSkipped StepKind = "guard_skipped"
	StepFire         StepKind = "fire"
	StepHandled      StepKind = "event"
)

// StepEvent is one observable action of a coordinator or dispatcher.
type StepEvent struct {
	Seq     int64    `json:"seq"`
	RunID   string   `json:"run_id"`
	ChainID int      `json:"chain_id"`
	Topic   string   `json:"topic"`
	Cycle   int      `json:"cycle"`
	Step    int      `json:"step"`
	Kind    StepKind `json:"kind"`

	// Name is the permission, member, guard or callback identifier.
	Name string `json:"name"`

	// Value is the pushed guard value. Only meaningful for StepGuard.
	Value bool `json:"value,omitempty"`
}

// RunInfo describes a coordinator run. Recorded once when it starts.
type RunInfo struct {
	RunID         string `json:"run_id"`
	ChainID       int    `json:"chain_id"`
	Topic         string `json:"topic"`
	TopicHash     string `json:"topic_hash"`
	Steps         int    `json:"steps"`
	EngineVersion string `json:"engine_version"`
}

// Recorder persists runs and step events. Recorders are called from every
// coordinator goroutine and must be safe for concurrent use. Errors are
// logged by the caller and never stop execution.
type Recorder interface {
	RecordRun(ctx context.Context, run RunInfo) error
	RecordStep(ctx context.Context, ev StepEvent) error
}
