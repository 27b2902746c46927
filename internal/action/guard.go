package action

import (
	"fmt"
	"sort"
	"strings"
)

// GuardBinding maps guard names to the providers of one owner.
//
// Evaluate calls the provider on every invocation; values are never cached
// because a guard may change between cycles.
type GuardBinding struct {
	providers map[string]func() bool
	names     []string
}

// EmptyBinding returns a binding with no guards.
func EmptyBinding() *GuardBinding {
	return &GuardBinding{providers: map[string]func() bool{}}
}

// Evaluate calls the provider for name. ok is false when the binding has
// no provider for name.
func (b *GuardBinding) Evaluate(name string) (value bool, ok bool) {
	if b == nil {
		return false, false
	}
	fn, ok := b.providers[name]
	if !ok {
		return false, false
	}
	return fn(), true
}

// Names returns the bound guard names in the order they were requested.
func (b *GuardBinding) Names() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.names...)
}

// Len returns the number of bound guards.
func (b *GuardBinding) Len() int {
	if b == nil {
		return 0
	}
	return len(b.names)
}

// BindGuards resolves a provider for every name on owner. Instance owners
// also see the static providers of their type. If any name has no
// provider the call fails and nothing is bound.
func (c *Catalog) BindGuards(owner any, names []string) (*GuardBinding, error) {
	b := EmptyBinding()
	var missing []string
	for _, name := range names {
		if _, dup := b.providers[name]; dup {
			continue
		}
		fn, ok := c.guardProvider(owner, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		b.providers[name] = fn
		b.names = append(b.names, name)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ResolveError{
			Code:    ErrCodeMissingGuard,
			Owner:   describeOwner(owner),
			Member:  strings.Join(missing, ","),
			Message: fmt.Sprintf("no guard provider for %s", strings.Join(missing, ", ")),
		}
	}
	return b, nil
}

func (c *Catalog) guardProvider(owner any, name string) (func() bool, bool) {
	if owner == nil {
		return nil, false
	}
	if tt, ok := owner.(TypeToken); ok {
		if e := c.statics[tt.t]; e != nil {
			fn, ok := e.guards[name]
			return fn, ok
		}
		return nil, false
	}
	if !isComparable(owner) {
		return nil, false
	}
	if e := c.instances[owner]; e != nil {
		if fn, ok := e.guards[name]; ok {
			return fn, true
		}
	}
	for _, t := range ownerTypes(owner) {
		if e := c.statics[t]; e != nil {
			if fn, ok := e.guards[name]; ok {
				return fn, true
			}
		}
	}
	return nil, false
}
