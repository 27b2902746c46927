// Package harness runs scripted coordination scenarios end to end.
//
// A scenario declares topics (inline or from spec files), an optional net
// for the reference monitor, scripted workers whose members record every
// call, and the subscriptions that wire workers to topics. The harness
// builds the snapshot, runs every chain for max_cycles cycles against the
// monitor (or a primitive that grants everything when no net is given),
// records the trace in an in-memory store and evaluates assertions.
//
// # Scenario Format
//
//	name: two_step_cycle
//	description: "t1 and t2 alternate, done fires once per cycle"
//	topics:
//	  - name: topic3
//	    permission: [p1, p2]
//	    guardCallbacks: [[g1], [g2]]
//	    fireCallbacks: [done]
//	net:
//	  places: { ready: 1, half: 0 }
//	  transitions:
//	    p1: { in: { ready: 1 }, out: { half: 1 } }
//	    p2: { in: { half: 1 }, out: { ready: 1 } }
//	    done: {}
//	  guards: { g1: false, g2: false }
//	workers:
//	  - name: w
//	    tasks: [t1, t2]
//	    guards: { g1: true, g2: true }
//	subscriptions:
//	  - { topic: topic3, worker: w, member: t1 }
//	  - { topic: topic3, worker: w, member: t2 }
//	max_cycles: 2
//	assertions:
//	  - type: calls
//	    calls: [w.t1, w.t2, w.t1, w.t2]
//	  - type: fired
//	    fired: [done, done]
//
// # Assertion Types
//
//   - calls: the complete call log equals calls
//   - call_order: calls appear in the call log in order, not necessarily adjacent
//   - call_count: call appears exactly count times
//   - guard_pushes: pushed guards in trace order, "g1" or "g1=true"
//   - fired: cycle callbacks in trace order
//   - final_marking: the monitor marking contains marking
//   - error: setup or execution failed with code (for example CHAIN_LENGTH,
//     ACTION_PANIC or TIMEOUT)
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, a testutil.DeterministicClock and
// sequential run ids ("run-1", "run-2", ...). The trace lists each chain's
// steps in seq order, chains in id order, then dispatcher events. This makes
// traces from repeated runs identical for golden comparison.
package harness
