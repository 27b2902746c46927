package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/baboon/internal/ir"
)

// Spec is the compiled configuration of an application: its topics in
// declaration order and, optionally, the net for the reference monitor.
type Spec struct {
	Topics []ir.Topic
	Net    *ir.NetSpec
}

// CompileSpec compiles every topic under `topic` and the optional `net`
// struct of a CUE value. The first error stops compilation; callers that
// want every error iterate with CompileTopic themselves.
func CompileSpec(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &Spec{}

	topicsVal := v.LookupPath(cue.ParsePath("topic"))
	if topicsVal.Exists() {
		iter, err := topicsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := CompileTopic(iter.Value())
			if err != nil {
				return nil, err
			}
			spec.Topics = append(spec.Topics, *t)
		}
	}

	netVal := v.LookupPath(cue.ParsePath("net"))
	if netVal.Exists() {
		net, err := CompileNet(netVal)
		if err != nil {
			return nil, err
		}
		spec.Net = net
	}

	return spec, nil
}

// Merge appends the topics of other and adopts its net when this spec has
// none. A second net is reported by the loader, not here.
func (s *Spec) Merge(other *Spec) {
	if other == nil {
		return
	}
	s.Topics = append(s.Topics, other.Topics...)
	if s.Net == nil {
		s.Net = other.Net
	}
}
