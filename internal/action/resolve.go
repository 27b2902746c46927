package action

import (
	"fmt"
	"reflect"
)

// maxEmbedDepth bounds the search through embedded fields, which can be
// cyclic through pointers.
const maxEmbedDepth = 8

// Resolve finds the single subscribable member named memberName on owner
// whose parameters accept args, and binds it.
//
// With requireStatic, owner must be a TypeToken and only static members
// are considered. Otherwise an instance owner sees its own members plus
// the static members declared for its dynamic type (or, for a pointer,
// the type it points to). Resolve has no side effects.
func (c *Catalog) Resolve(owner any, memberName string, args []any, requireStatic bool) (*Action, error) {
	fail := func(code, format string, a ...any) error {
		return &ResolveError{
			Code:    code,
			Owner:   describeOwner(owner),
			Member:  memberName,
			Message: fmt.Sprintf(format, a...),
		}
	}

	if owner == nil {
		return nil, fail(ErrCodeNoOwner, "owner is nil")
	}
	for i, a := range args {
		if a == nil {
			return nil, fail(ErrCodeNilArgument, "argument prototype %d is nil", i)
		}
	}

	tt, isType := owner.(TypeToken)
	if requireStatic && !isType {
		return nil, fail(ErrCodeStaticRequired, "static resolution needs a type token, got an instance of %T", owner)
	}
	if !isType && !isComparable(owner) {
		return nil, fail(ErrCodeNoOwner, "owner is not comparable")
	}

	candidates := c.visibleMembers(owner, memberName)
	if len(candidates) == 0 {
		if isType && c.declaredOnInstances(tt.t, memberName) {
			return nil, fail(ErrCodeNotStatic, "member is declared on instances, not static")
		}
		if _, ok := c.guardProvider(owner, memberName); ok {
			return nil, fail(ErrCodeNotSubscribable, "member is a guard provider")
		}
		return nil, fail(ErrCodeNoMember, "no member with this name")
	}

	var (
		matched   *Member
		boundArgs []reflect.Value
		matches   int
	)
	for _, m := range candidates {
		if !m.Kind.Subscribable() {
			continue
		}
		bound, ok := bindArgs(m.Params, args)
		if !ok {
			continue
		}
		matches++
		matched, boundArgs = m, bound
	}

	switch {
	case matches == 0:
		return nil, fail(ErrCodeNoMatch, "no overload accepts (%s)", describeArgs(args))
	case matches > 1:
		return nil, fail(ErrCodeAmbiguous, "%d overloads accept (%s)", matches, describeArgs(args))
	}

	return &Action{
		Owner:  owner,
		Member: matched,
		Args:   append([]any(nil), args...),
		args:   boundArgs,
	}, nil
}

// declaredOnInstances reports whether instances of t, or of *t, declare a
// member named name.
func (c *Catalog) declaredOnInstances(t reflect.Type, name string) bool {
	return c.instanceNames[t][name] || c.instanceNames[reflect.PointerTo(t)][name]
}

// visibleMembers lists the members named name that owner can reach.
func (c *Catalog) visibleMembers(owner any, name string) []*Member {
	if tt, ok := owner.(TypeToken); ok {
		if e := c.statics[tt.t]; e != nil {
			return e.members[name]
		}
		return nil
	}

	var out []*Member
	if e := c.instances[owner]; e != nil {
		out = append(out, e.members[name]...)
	}
	for _, t := range ownerTypes(owner) {
		if e := c.statics[t]; e != nil {
			out = append(out, e.members[name]...)
		}
	}
	return out
}

// ownerTypes returns the dynamic type of owner and, when it is a pointer,
// the pointed-to type.
func ownerTypes(owner any) []reflect.Type {
	t := reflect.TypeOf(owner)
	if t.Kind() == reflect.Pointer {
		return []reflect.Type{t, t.Elem()}
	}
	return []reflect.Type{t}
}

// bindArgs converts prototypes into call arguments for params. It reports
// false when the arity differs or any prototype is incompatible.
func bindArgs(params []reflect.Type, args []any) ([]reflect.Value, bool) {
	if len(params) != len(args) {
		return nil, false
	}
	out := make([]reflect.Value, len(args))
	for i, a := range args {
		v, ok := Coerce(params[i], reflect.ValueOf(a))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Coerce returns the value to pass for a parameter of type param given a
// prototype value v, or false when v does not satisfy param.
//
// v satisfies param when the types are equal, when param is an interface
// implemented by v's type, or when v (or the struct v points to) embeds a
// field of type param, or of type *param or param's element. Embedding is
// followed through exported anonymous fields only.
func Coerce(param reflect.Type, v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.Type() == param {
		return v, true
	}
	if param.Kind() == reflect.Interface && v.Type().Implements(param) {
		return v, true
	}
	return embedded(param, v, 0)
}

func embedded(param reflect.Type, v reflect.Value, depth int) (reflect.Value, bool) {
	if depth > maxEmbedDepth {
		return reflect.Value{}, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous || !f.IsExported() {
			continue
		}
		fv := v.Field(i)
		if fv.Type() == param {
			return fv, true
		}
		if param.Kind() == reflect.Pointer && fv.CanAddr() && fv.Addr().Type() == param {
			return fv.Addr(), true
		}
		if param.Kind() == reflect.Interface && fv.Type().Implements(param) {
			return fv, true
		}
		if out, ok := embedded(param, fv, depth+1); ok {
			return out, true
		}
	}
	return reflect.Value{}, false
}

func describeArgs(args []any) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%T", a)
	}
	return s
}
