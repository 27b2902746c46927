package action

import (
	"errors"
	"reflect"
)

// ownerEntry holds the members declared for one owner.
type ownerEntry struct {
	members map[string][]*Member
	guards  map[string]func() bool
}

func newOwnerEntry() *ownerEntry {
	return &ownerEntry{
		members: make(map[string][]*Member),
		guards:  make(map[string]func() bool),
	}
}

// Catalog records the members applications declare during setup.
//
// A Catalog is populated from a single goroutine and is read-only once
// resolution starts. Registration problems are collected and reported by
// Err so declarations can be chained.
type Catalog struct {
	instances map[any]*ownerEntry
	statics   map[reflect.Type]*ownerEntry

	// instanceNames records member names declared on instances of a type,
	// so the static path can tell "not static" apart from "absent".
	instanceNames map[reflect.Type]map[string]bool

	errs []error
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		instances:     make(map[any]*ownerEntry),
		statics:       make(map[reflect.Type]*ownerEntry),
		instanceNames: make(map[reflect.Type]map[string]bool),
	}
}

// Err returns every registration error recorded so far, joined.
func (c *Catalog) Err() error {
	return errors.Join(c.errs...)
}

// Owner declares members for one owner. Obtain it from Catalog.Instance or
// Catalog.Static.
type Owner struct {
	cat    *Catalog
	key    any
	static bool
	entry  *ownerEntry
}

// Instance returns the declaration handle for an instance owner. The owner
// must be comparable; pointers are the usual choice.
func (c *Catalog) Instance(owner any) *Owner {
	if owner == nil {
		c.errs = append(c.errs, &RegistrationError{
			Code: ErrCodeNilOwner, Owner: "<nil>", Member: "*", Message: "owner is nil",
		})
		return &Owner{cat: c, entry: newOwnerEntry()}
	}
	if tt, ok := owner.(TypeToken); ok {
		return c.Static(tt)
	}
	if !isComparable(owner) {
		c.errs = append(c.errs, &RegistrationError{
			Code: ErrCodeNotComparable, Owner: describeOwner(owner), Member: "*",
			Message: "owner must be comparable (use a pointer)",
		})
		return &Owner{cat: c, entry: newOwnerEntry()}
	}
	entry, ok := c.instances[owner]
	if !ok {
		entry = newOwnerEntry()
		c.instances[owner] = entry
	}
	return &Owner{cat: c, key: owner, entry: entry}
}

// Static returns the declaration handle for the static members of a type.
func (c *Catalog) Static(tt TypeToken) *Owner {
	if tt.IsZero() {
		c.errs = append(c.errs, &RegistrationError{
			Code: ErrCodeNilOwner, Owner: tt.String(), Member: "*", Message: "type token is empty",
		})
		return &Owner{cat: c, static: true, entry: newOwnerEntry()}
	}
	entry, ok := c.statics[tt.t]
	if !ok {
		entry = newOwnerEntry()
		c.statics[tt.t] = entry
	}
	return &Owner{cat: c, key: tt, static: true, entry: entry}
}

// Task declares a task member. fn must be a function returning nothing or
// a single error.
func (o *Owner) Task(name string, fn any) *Owner {
	o.add(name, KindTask, fn)
	return o
}

// EventHandler declares an event-handler member. fn follows the same shape
// rules as Task.
func (o *Owner) EventHandler(name string, fn any) *Owner {
	o.add(name, KindEventHandler, fn)
	return o
}

// GuardProvider declares the provider for a guard name.
func (o *Owner) GuardProvider(name string, fn func() bool) *Owner {
	if name == "" {
		o.fail(name, ErrCodeEmptyName, "guard name is empty")
		return o
	}
	if fn == nil {
		o.fail(name, ErrCodeBadGuard, "guard provider is nil")
		return o
	}
	if _, dup := o.entry.guards[name]; dup {
		o.fail(name, ErrCodeDuplicateGuard, "guard provider declared twice")
		return o
	}
	o.entry.guards[name] = fn
	return o
}

func (o *Owner) add(name string, kind Kind, fn any) {
	if name == "" {
		o.fail(name, ErrCodeEmptyName, "member name is empty")
		return
	}
	m, err := newMember(name, kind, fn, o.static)
	if err != nil {
		o.fail(name, err.Code, err.Message)
		return
	}
	for _, existing := range o.entry.members[name] {
		if existing.Kind != kind {
			o.fail(name, ErrCodeConflictingKinds, "declared as both "+existing.Kind.String()+" and "+kind.String())
			return
		}
		if existing.sameParams(m) {
			o.fail(name, ErrCodeDuplicateMember, "declared twice with signature "+m.Signature())
			return
		}
	}
	o.entry.members[name] = append(o.entry.members[name], m)

	if !o.static && o.key != nil {
		t := reflect.TypeOf(o.key)
		names := o.cat.instanceNames[t]
		if names == nil {
			names = make(map[string]bool)
			o.cat.instanceNames[t] = names
		}
		names[name] = true
	}
}

func (o *Owner) fail(member, code, msg string) {
	o.cat.errs = append(o.cat.errs, &RegistrationError{
		Code:    code,
		Owner:   describeOwner(o.key),
		Member:  member,
		Message: msg,
	})
}

type memberError struct {
	Code    string
	Message string
}

func newMember(name string, kind Kind, fn any, static bool) (*Member, *memberError) {
	if fn == nil {
		return nil, &memberError{ErrCodeNotFunc, "function is nil"}
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || v.IsNil() {
		return nil, &memberError{ErrCodeNotFunc, "expected a function, got " + t.String()}
	}
	if t.IsVariadic() {
		return nil, &memberError{ErrCodeVariadic, "variadic functions cannot be matched by arity"}
	}

	m := &Member{Name: name, Kind: kind, Static: static, fn: v}
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) != errorType {
			return nil, &memberError{ErrCodeBadResult, "the only result must be error, got " + t.Out(0).String()}
		}
		m.returnsError = true
	default:
		return nil, &memberError{ErrCodeBadResult, "must return nothing or a single error"}
	}

	m.Params = make([]reflect.Type, t.NumIn())
	for i := range m.Params {
		m.Params[i] = t.In(i)
	}
	return m, nil
}

func isComparable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}
