package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/baboon/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func twoStepNet() *ir.NetSpec {
	return &ir.NetSpec{
		Places: map[string]int{"idle": 1, "busy": 0},
		Transitions: map[string]ir.TransitionSpec{
			"p1":   {In: map[string]int{"idle": 1}, Out: map[string]int{"busy": 1}},
			"p2":   {In: map[string]int{"busy": 1}, Out: map[string]int{"idle": 1}},
			"done": {},
		},
		Guards: map[string]bool{"g1": false, "g2": false},
	}
}

func TestValidateValidSpec(t *testing.T) {
	spec := &Spec{
		Topics: []ir.Topic{
			ir.NormalizeTopic(ir.Topic{
				Name:           "topic3",
				Permission:     []string{"p1", "p2"},
				GuardCallbacks: [][]string{{"g1"}, {"g2"}},
				FireCallbacks:  []string{"done"},
			}),
		},
		Net: twoStepNet(),
	}

	assert.Empty(t, Validate(spec))
}

func TestValidateNilSpec(t *testing.T) {
	assert.Empty(t, Validate(nil))
}

func TestValidateTopicErrors(t *testing.T) {
	spec := &Spec{
		Topics: []ir.Topic{
			{Name: "", Permission: []string{"p1"}, GuardCallbacks: [][]string{{}}},
			{Name: "topic5", Permission: []string{"p1", "p2"}, GuardCallbacks: [][]string{{"g1"}, {"g2"}, {"g3"}}},
			{Name: "topic5", Permission: []string{""}, GuardCallbacks: [][]string{{}}},
			{Name: "events", Permission: []string{}, GuardCallbacks: [][]string{}},
		},
	}

	errs := Validate(spec)
	assert.ElementsMatch(t, []string{
		ErrTopicNameEmpty,
		ErrGuardLengthMismatch,
		ErrDuplicateTopic,
		ErrEmptyPermission,
		ErrNoPermissions,
	}, codes(errs))
}

func TestValidateNoPermissionsIsWarning(t *testing.T) {
	errs := Validate(&Spec{Topics: []ir.Topic{{Name: "events", Permission: []string{}, GuardCallbacks: [][]string{}}}})
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Warning())
}

func TestValidateCrossReferences(t *testing.T) {
	spec := &Spec{
		Topics: []ir.Topic{{
			Name:           "t",
			Permission:     []string{"p1", "p9"},
			GuardCallbacks: [][]string{{"g1"}, {"g7"}},
			FireCallbacks:  []string{"finish"},
		}},
		Net: twoStepNet(),
	}

	errs := Validate(spec)
	assert.Equal(t, []string{ErrUnknownTransition, ErrUnknownGuard, ErrUnknownTransition}, codes(errs))
	assert.Equal(t, "topic.t.permission[1]", errs[0].Field)
	assert.Equal(t, "topic.t.guardCallbacks[1]", errs[1].Field)
	assert.Equal(t, "topic.t.fireCallbacks[0]", errs[2].Field)
}

func TestValidateNetReferences(t *testing.T) {
	net := twoStepNet()
	net.Transitions["p3"] = ir.TransitionSpec{In: map[string]int{"nowhere": 1}, Guard: "missing"}

	errs := Validate(&Spec{Net: net})
	assert.Equal(t, []string{ErrUnknownPlace, ErrUnknownGuard}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "topic.t", Message: "bad", Code: ErrDuplicateTopic}
	assert.Equal(t, "[E204] topic.t: bad", e.Error())

	e.Line = 3
	assert.Equal(t, "[E204] line 3: topic.t: bad", e.Error())
}
