package api

import "errors"

// ErrCancelled is the internal cooperative-cancellation signal. It is
// returned by RunContext.Checkpoint when a stop was requested or the run's
// context was cancelled, and must be propagated unmodified up through the
// work hook. Worker.Start is the sole catcher: it turns ErrCancelled into a
// clean, silent termination (finished emitted, no result, no error event).
// Handling it anywhere else is a bug in the hook.
var ErrCancelled = errors.New("toil: run cancelled")

// Protocol-misuse errors. These indicate a programming error in the caller
// and are returned synchronously from the worker / dispatcher API rather
// than being deferred to an event.
var (
	// ErrAlreadyRunning is returned by Start when a run is already in
	// flight. The in-flight run is unaffected; the hook is never re-entered.
	ErrAlreadyRunning = errors.New("toil: worker already running")

	// ErrWorkerDeleted is returned when an entry point is invoked on a
	// worker that has been scheduled for teardown.
	ErrWorkerDeleted = errors.New("toil: worker deleted")

	// ErrAlreadyAdopted is returned by Lone.Adopt when the dispatcher
	// already owns a worker.
	ErrAlreadyAdopted = errors.New("toil: dispatcher already has an adopted worker")

	// ErrNothingAdopted is returned by Lone operations that require an
	// adopted worker when there is none.
	ErrNothingAdopted = errors.New("toil: dispatcher has no adopted worker")

	// ErrDispatcherHalted is returned when a dispatcher is used after Halt.
	ErrDispatcherHalted = errors.New("toil: dispatcher halted")

	// ErrPoolStopped is returned by Pool.Submit variants after Stop.
	ErrPoolStopped = errors.New("toil: pool has been stopped")

	// ErrQueueFull is returned by the non-blocking submit when the pool's
	// submission queue is full.
	ErrQueueFull = errors.New("toil: submission queue is full")
)

// ErrRunNotFound is returned by RunHistory lookups for unknown run IDs.
var ErrRunNotFound = errors.New("toil: run not found")

