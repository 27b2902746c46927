package action

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind tags a member with the role it can play.
type Kind int

const (
	KindTask Kind = iota + 1
	KindEventHandler
	KindGuardProvider
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindEventHandler:
		return "event-handler"
	case KindGuardProvider:
		return "guard-provider"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Subscribable reports whether members of this kind can be bound to a topic.
func (k Kind) Subscribable() bool {
	return k == KindTask || k == KindEventHandler
}

// TypeToken identifies a static owner.
type TypeToken struct {
	t reflect.Type
}

// TypeOf returns the TypeToken for T.
func TypeOf[T any]() TypeToken {
	return TypeToken{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// TokenFor returns the TypeToken for a reflect.Type.
func TokenFor(t reflect.Type) TypeToken {
	return TypeToken{t: t}
}

// Type returns the underlying reflect.Type.
func (tt TypeToken) Type() reflect.Type {
	return tt.t
}

// IsZero reports whether the token names no type.
func (tt TypeToken) IsZero() bool {
	return tt.t == nil
}

func (tt TypeToken) String() string {
	if tt.t == nil {
		return "<nil type>"
	}
	return tt.t.String()
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Member is a callable declared on a Catalog.
type Member struct {
	Name   string
	Kind   Kind
	Params []reflect.Type
	Static bool

	fn           reflect.Value
	returnsError bool
}

// Arity returns the number of declared parameters.
func (m *Member) Arity() int {
	return len(m.Params)
}

// Signature renders the member as name(T1, T2).
func (m *Member) Signature() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(params, ", "))
}

// sameParams reports whether two members declare identical parameter lists.
func (m *Member) sameParams(other *Member) bool {
	if len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// Action is a resolved member bound to an owner and to the arguments it
// is invoked with. Immutable once resolved.
type Action struct {
	Owner  any
	Member *Member
	Args   []any

	args []reflect.Value
}

// Invoke calls the member with its bound arguments. A panic in the member
// is not recovered here.
func (a *Action) Invoke() error {
	out := a.Member.fn.Call(a.args)
	if a.Member.returnsError && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// String renders owner and member for logs and errors.
func (a *Action) String() string {
	return describeOwner(a.Owner) + "." + a.Member.Signature()
}

func describeOwner(owner any) string {
	switch o := owner.(type) {
	case nil:
		return "<nil>"
	case TypeToken:
		return o.String()
	default:
		return fmt.Sprintf("%T", owner)
	}
}

// DescribeOwner renders an owner the way errors in this package do.
func DescribeOwner(owner any) string {
	return describeOwner(owner)
}
