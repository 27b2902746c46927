package ir

// NetSpec describes a place/transition net used by the reference monitor.
type NetSpec struct {
	// Places maps place name to its initial token count.
	Places map[string]int `json:"places" yaml:"places"`

	// Transitions maps transition name (the permission identifier) to its arcs.
	Transitions map[string]TransitionSpec `json:"transitions" yaml:"transitions"`

	// Guards maps guard name to its initial value.
	Guards map[string]bool `json:"guards,omitempty" yaml:"guards,omitempty"`
}

// TransitionSpec describes one transition of a NetSpec.
type TransitionSpec struct {
	In  map[string]int `json:"in,omitempty" yaml:"in,omitempty"`
	Out map[string]int `json:"out,omitempty" yaml:"out,omitempty"`

	// Guard, when set, names the guard the transition depends on. The
	// transition is enabled only while the guard is true, or false when
	// Negate is set.
	Guard  string `json:"guard,omitempty" yaml:"guard,omitempty"`
	Negate bool   `json:"negate,omitempty" yaml:"negate,omitempty"`

	// Informed transitions notify event observers when they fire.
	Informed bool `json:"informed,omitempty" yaml:"informed,omitempty"`
}
