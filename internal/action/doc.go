// Package action describes callable members and resolves them against
// argument prototypes.
//
// Applications declare their members explicitly on a Catalog during setup.
// A member is one of three kinds:
//
//   - a task, run by an execution coordinator as one step of a chain
//   - an event handler, invoked when a primitive event is observed
//   - a guard provider, a func() bool evaluated after a step
//
// Members belong either to an instance owner (any comparable value,
// usually a pointer) or to a static owner identified by a TypeToken:
//
//	cat := action.NewCatalog()
//	cat.Instance(obj).
//		Task("mockTask", obj.MockTask).
//		GuardProvider("g1", obj.Guard1)
//	cat.Static(action.TypeOf[MockObject]()).
//		Task("staticMockTask", StaticMockTask)
//	if err := cat.Err(); err != nil { ... }
//
// Parameter types are read from each function's signature. Resolve then
// picks the single member whose parameters accept the runtime types of
// the given prototypes. A prototype is accepted by a parameter when the
// types are equal, when the parameter is an interface the prototype
// implements, or when the prototype embeds the parameter's struct type.
package action
