package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/baboon/internal/ir"
)

// CompileNet parses the CUE net struct into a NetSpec:
//
//	net: {
//		places: { idle: 1, busy: 0 }
//		transitions: {
//			p1: { "in": { idle: 1 }, out: { busy: 1 }, guard: "g1" }
//			p2: { "in": { busy: 1 }, out: { idle: 1 }, informed: true }
//		}
//		guards: { g1: true }
//	}
func CompileNet(v cue.Value) (*ir.NetSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	net := &ir.NetSpec{
		Places:      map[string]int{},
		Transitions: map[string]ir.TransitionSpec{},
		Guards:      map[string]bool{},
	}

	if placesVal := v.LookupPath(cue.ParsePath("places")); placesVal.Exists() {
		places, err := counts(placesVal, "net.places")
		if err != nil {
			return nil, err
		}
		net.Places = places
	}

	transVal := v.LookupPath(cue.ParsePath("transitions"))
	if !transVal.Exists() {
		return nil, &CompileError{
			Field:   "net.transitions",
			Message: "at least one transition is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := transVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		tr, err := compileTransition(name, iter.Value())
		if err != nil {
			return nil, err
		}
		net.Transitions[name] = tr
	}

	if guardsVal := v.LookupPath(cue.ParsePath("guards")); guardsVal.Exists() {
		giter, err := guardsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for giter.Next() {
			b, err := giter.Value().Bool()
			if err != nil {
				return nil, &CompileError{
					Field:   "net.guards." + giter.Label(),
					Message: "guard initial value must be a bool",
					Pos:     giter.Value().Pos(),
				}
			}
			net.Guards[giter.Label()] = b
		}
	}

	return net, nil
}

func compileTransition(name string, v cue.Value) (ir.TransitionSpec, error) {
	field := "net.transitions." + name
	tr := ir.TransitionSpec{}

	// "in" is a CUE keyword, so the path is built from a string label.
	if inVal := v.LookupPath(cue.MakePath(cue.Str("in"))); inVal.Exists() {
		in, err := counts(inVal, field+".in")
		if err != nil {
			return tr, err
		}
		tr.In = in
	}
	if outVal := v.LookupPath(cue.ParsePath("out")); outVal.Exists() {
		out, err := counts(outVal, field+".out")
		if err != nil {
			return tr, err
		}
		tr.Out = out
	}
	if guardVal := v.LookupPath(cue.ParsePath("guard")); guardVal.Exists() {
		g, err := guardVal.String()
		if err != nil {
			return tr, &CompileError{Field: field + ".guard", Message: "must be a string", Pos: guardVal.Pos()}
		}
		tr.Guard = g
	}
	if negVal := v.LookupPath(cue.ParsePath("negate")); negVal.Exists() {
		b, err := negVal.Bool()
		if err != nil {
			return tr, &CompileError{Field: field + ".negate", Message: "must be a bool", Pos: negVal.Pos()}
		}
		tr.Negate = b
	}
	if infVal := v.LookupPath(cue.ParsePath("informed")); infVal.Exists() {
		b, err := infVal.Bool()
		if err != nil {
			return tr, &CompileError{Field: field + ".informed", Message: "must be a bool", Pos: infVal.Pos()}
		}
		tr.Informed = b
	}
	return tr, nil
}

// counts reads a struct of non-negative integers (place -> tokens).
func counts(v cue.Value, field string) (map[string]int, error) {
	out := map[string]int{}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   field + "." + iter.Label(),
				Message: "token count must be an integer",
				Pos:     iter.Value().Pos(),
			}
		}
		if n < 0 {
			return nil, &CompileError{
				Field:   field + "." + iter.Label(),
				Message: fmt.Sprintf("token count must not be negative (got %d)", n),
				Pos:     iter.Value().Pos(),
			}
		}
		out[iter.Label()] = int(n)
	}
	return out, nil
}
