// Package worker implements the cooperative worker state machine at the
// heart of toil.
//
// A Worker wraps a single caller-supplied work hook and moves through the
// states defined in pkg/api: IDLE -> WORKING -> (PAUSED <-> WORKING) ->
// IDLE, with DELETED as the terminal teardown state used by dedicated
// dispatchers.
//
// # Ownership model
//
// The goroutine that constructs a Worker and its Signals bundle is the
// owner. The hook runs on whatever goroutine calls Start, typically a
// dispatcher goroutine, never the owner. Everything the run wants to tell
// the owner travels through the Signals bundle as queued events; handlers
// registered on the bundle execute only in the goroutine that drains it.
//
// # Cooperative checkpoints
//
// The hook receives a RunContext and must call its Checkpoint method
// periodically, at points where partial progress is safe to abandon.
// Checkpoint blocks while the worker is paused and returns api.ErrCancelled
// when a stop was requested or the run's context was cancelled. The hook
// propagates that error unchanged; Start is the sole catcher and treats it
// as a clean, silent termination. There is no preemptive kill anywhere in
// this package: a hook that never checkpoints can only be interrupted
// between runs.
//
// # Signal ordering
//
// Per run, emission order is: started, zero or more progress, at most one
// of result or error (neither when cancelled), then exactly one finished,
// always last. Delivery to the owner is queued and order-preserving but not
// synchronous.
package worker
