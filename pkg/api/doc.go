// Package api contains the core building blocks of the toil worker
// framework. It defines the worker lifecycle states, the event types a
// running worker emits back to its owner, the observer callbacks used for
// logging and metrics, and the sentinel errors of the worker protocol.
//
// Most users interact with the higher-level toil package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// framework itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Worker states
//   - Events
//   - Observability
//   - Run history
//
// # Worker States
//
// A worker is always in exactly one State: idle, working, paused, or
// deleted. State is owned by the worker and changes only through its entry
// points (Start, Stop, Pause, Resume). The transition table lives here so
// that dispatchers and stores can reason about legality without importing
// the worker implementation.
//
// # Events
//
// While a hook runs, the worker emits Events: started, zero or more
// progress reports, at most one result or error, and exactly one trailing
// finished. Events cross the goroutine boundary through a queued channel
// and are handled only in the goroutine that drains it, the owner.
//
// # Observability
//
// The Observer interface receives synchronous callbacks from the worker
// goroutine for logging, metrics, and persistence. Ready-made
// implementations (logging, in-memory metrics, composition) live here;
// the history stores in internal/history build on the same interface.
//
// # Run History
//
// RunRecord and the RunHistory interface describe durable run bookkeeping.
// Backends (in-memory, SQLite, Postgres) are constructed through the toil
// package.
//
// See the toil package documentation and the examples directory for
// end-to-end usage.
package api
