package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/baboon/internal/ir"
)

// CompileTopic parses a CUE value into a Topic.
//
// The CUE value should be the topic struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`topic: topic1: { permission: "p1" }`)
//	t, err := CompileTopic(v.LookupPath(cue.ParsePath("topic.topic1")))
//
// The topic name is the struct label unless a name field overrides it.
// permission accepts a string or a list of strings. guardCallbacks is a list
// of guard-name lists and may be omitted. fireCallbacks accepts a string or
// a list and defaults to empty.
func CompileTopic(v cue.Value) (*ir.Topic, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &ir.Topic{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		t.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t.Name = name
	}

	permVal := v.LookupPath(cue.ParsePath("permission"))
	if !permVal.Exists() {
		return nil, &CompileError{
			Field:   "permission",
			Message: fmt.Sprintf("topic %q: permission is required", t.Name),
			Pos:     v.Pos(),
		}
	}
	perms, err := stringOrList(permVal, "permission")
	if err != nil {
		return nil, err
	}
	t.Permission = perms

	if guardsVal := v.LookupPath(cue.ParsePath("guardCallbacks")); guardsVal.Exists() {
		iter, err := guardsVal.List()
		if err != nil {
			return nil, &CompileError{
				Field:   "guardCallbacks",
				Message: "must be a list of guard-name lists",
				Pos:     guardsVal.Pos(),
			}
		}
		t.GuardCallbacks = [][]string{}
		for iter.Next() {
			set, err := stringOrList(iter.Value(), "guardCallbacks")
			if err != nil {
				return nil, err
			}
			t.GuardCallbacks = append(t.GuardCallbacks, set)
		}
	}

	if fireVal := v.LookupPath(cue.ParsePath("fireCallbacks")); fireVal.Exists() {
		fire, err := stringOrList(fireVal, "fireCallbacks")
		if err != nil {
			return nil, err
		}
		t.FireCallbacks = fire
	}

	normalized := ir.NormalizeTopic(*t)
	return &normalized, nil
}

// stringOrList reads a CUE value that is either a single string or a list
// of strings. null is read as an empty list.
func stringOrList(v cue.Value, field string) ([]string, error) {
	if v.IsNull() {
		return []string{}, nil
	}
	if s, err := v.String(); err == nil {
		return []string{s}, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a string or a list of strings",
			Pos:     v.Pos(),
		}
	}

	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "list elements must be strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}
