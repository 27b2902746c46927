// Package engine drives task chains against the synchronization primitive.
//
// ARCHITECTURE:
//
// One Coordinator per task chain. Each coordinator runs a strict loop over
// the chain's steps:
//
//  1. request permission for the step's identifier (blocking, non-perennial)
//  2. invoke the step's action
//  3. evaluate the step's guards and push each value to the primitive
//  4. advance the cursor modulo the chain length
//  5. after the last step, fire the topic's cycle callbacks (perennial)
//
// RequestPermission is the only suspension point. Steps of one coordinator
// never overlap; coordinators are not ordered relative to each other except
// through the primitive's admission rules.
//
// A Runner starts one coordinator per chain of a subscription snapshot and
// collects their failures. A Dispatcher delivers primitive events to event
// subscriptions on a single goroutine.
//
// Every observable step is stamped from a logical Clock, never wall time,
// and handed to an optional Recorder.
//
// Cancellation is cooperative: the context is checked before every step and
// passed to RequestPermission. An action that is running is never
// interrupted.
package engine
