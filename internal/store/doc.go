// Package store provides SQLite-backed durable storage for coordinator
// traces.
//
// The store is an append-only log with:
//   - Runs: one row per coordinator run (topic, topic hash, chain length)
//   - Step events: every permission grant, action invocation, guard push,
//     cycle callback and handled event, stamped with a logical seq
//
// Store implements engine.Recorder, so a store handed to engine.WithRecorder
// captures a run as it happens.
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Every
// query that returns step events sorts by seq ASC, id ASC, so two reads of
// the same trace are identical.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
