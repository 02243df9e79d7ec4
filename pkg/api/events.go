package api

import "time"

// EventType identifies an event emitted by a running worker.
type EventType string

const (
	// EventStarted is emitted once, first, when a run begins.
	EventStarted EventType = "worker.started"

	// EventProgress carries a completion percentage in 0..100. It may be
	// emitted any number of times between started and the terminal events.
	EventProgress EventType = "worker.progress"

	// EventResult carries the hook's return value. Emitted at most once,
	// never together with EventError.
	EventResult EventType = "worker.result"

	// EventError carries a WorkError describing a hook failure. Emitted at
	// most once, never together with EventResult.
	EventError EventType = "worker.error"

	// EventFinished is emitted exactly once per run, always last,
	// regardless of success, failure, or cancellation.
	EventFinished EventType = "worker.finished"
)

// Event is a single notification crossing from the worker goroutine to the
// owner. Events for one run are delivered in emission order; handlers run
// only in the goroutine that drains the owning Signals bundle.
//
// A payload placed in Result is handed over with the emission: the worker
// must not touch it afterwards.
type Event struct {
	WorkerID string
	RunID    string
	Type     EventType
	At       time.Time

	// Progress is set for EventProgress, clamped to 0..100.
	Progress int

	// Result is set for EventResult.
	Result any

	// Err is set for EventError.
	Err *WorkError

	// Success is set for EventFinished: true on a normal return, false on
	// failure and on cooperative cancellation. Cancelled runs emit neither
	// result nor error, so this flag is how the owner tells a clean cancel
	// apart from success.
	Success bool
}

// WorkError describes a failure inside the work hook. It is built in the
// worker goroutine and carried to the owner as a value; the original error
// never propagates as a raised panic.
type WorkError struct {
	// Kind is the Go type of the underlying error, or "panic" when the
	// hook panicked with a non-error value.
	Kind string

	// Message is the error (or panic) text.
	Message string

	// Trace is the formatted goroutine stack captured at recovery time.
	// Empty for plain error returns.
	Trace string
}

func (e *WorkError) Error() string {
	return e.Kind + ": " + e.Message
}
