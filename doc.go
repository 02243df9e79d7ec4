// Package toil provides a cooperative background worker model for Go.
//
// Toil is designed for applications that run long-lived jobs (report
// generation, media processing, bulk imports) off their main goroutine and
// need those jobs to report progress, pause, resume, and cancel cleanly. It runs
// fully in-process and integrates into existing codebases without heavy
// infrastructure.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Worker
//  2. Signals
//  3. Checkpoint
//  4. Dispatchers
//  5. Runner
//
// # Worker
//
// A Worker wraps one unit of work (a Hook) in a small state machine:
// IDLE, WORKING, PAUSED, DELETED. It guards against re-entry (a worker
// whose hook is still running rejects a second start) and recycles: when
// a run ends the worker returns to IDLE and can be started again.
//
// Control requests (Stop, Pause, Resume) return immediately. They take
// effect at the hook's next checkpoint, never preemptively.
//
// # Signals
//
// Each worker emits its lifecycle as an ordered event stream through a
// Signals bundle: started, progress, result, error, finished. The finished
// event is always last and always arrives exactly once per run, whether the
// run completed, failed, or was cancelled.
//
// Events are queued; handlers run only when the owning goroutine drains the
// bundle (Drain, Pump, or a Runner's pump goroutine). The worker goroutine
// never executes handler code.
//
// # Checkpoint
//
// Hooks call Checkpoint at safe points. A checkpoint is where cancellation
// is honored and where a paused run parks until resumed. Work between
// checkpoints is never interrupted, so hooks control exactly where they can
// be suspended.
//
// # Dispatchers
//
// Two dispatch strategies drive workers:
//
//   - Lone: a dedicated dispatcher goroutine owning one adopted, recyclable
//     worker. Mirrors the "one background thread per job" pattern.
//   - Pool: a fixed set of goroutines executing fire-and-forget submissions,
//     each wrapped in a throwaway worker.
//
// Both run the same Worker state machine; they differ only in how runs are
// scheduled and torn down.
//
// # Runner
//
// Runner bundles a worker, its signals, and a Lone dispatcher with an event
// pump goroutine. It is the quickest way to get one background job running
// with handlers firing on a single owner goroutine.
//
// # Observability and history
//
// Observers receive synchronous run callbacks for logging and metrics
// (LoggingObserver, BasicMetrics, or your own). A history recorder mirrors
// runs into a RunHistory store (in-memory, SQLite, or Postgres); the
// runstate package tracks live runs across processes in Redis, and the
// relay package publishes lifecycle notices to NATS.
package toil
