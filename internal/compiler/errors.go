package compiler

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a malformed topic or net definition. Field is the
// offending field path ("permission", "net.transitions.p1.guard"); Pos is
// only valid for definitions read from CUE.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Field, e.Message)
}

// formatCUEError turns the first positioned CUE error in err into a
// *CompileError on the "cue" field. Errors without a position are
// returned unchanged.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	for _, ce := range cueerrors.Errors(err) {
		if pos := cueerrors.Positions(ce); len(pos) > 0 {
			return &CompileError{Field: "cue", Message: ce.Error(), Pos: pos[0]}
		}
	}
	return err
}
