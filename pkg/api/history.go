package api

import "time"

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeRunning   Outcome = "RUNNING"
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// RunRecord is the durable bookkeeping row for one run. It is intentionally
// small and stable: identifiers, timing, the latest progress report, and
// the error text on failure. Result payloads are not persisted.
type RunRecord struct {
	RunID    string
	WorkerID string
	Name     string

	Outcome  Outcome
	Progress int

	StartedAt  time.Time
	FinishedAt time.Time

	// Error holds the WorkError kind and message on failure, empty
	// otherwise.
	Error string
}

// RunFilter controls how run records are listed.
// Zero values mean "no filter" for that field.
type RunFilter struct {
	// Name, if non-empty, limits results to runs with the given job name.
	Name string

	// Outcome, if non-empty, limits results to runs with the given outcome.
	Outcome Outcome
}

// RunHistory stores run records. Implementations must be safe for use from
// multiple goroutines; the worker writes from its own goroutine while the
// owner may list concurrently.
type RunHistory interface {
	// SaveRun inserts a new record. The record's Outcome is typically
	// OutcomeRunning at insert time.
	SaveRun(rec *RunRecord) error

	// UpdateRun replaces the record with the same RunID.
	// Returns ErrRunNotFound if no such record exists.
	UpdateRun(rec *RunRecord) error

	// GetRun looks up a record by run ID.
	// Returns ErrRunNotFound if no such record exists.
	GetRun(runID string) (*RunRecord, error)

	// ListRuns returns records matching the given filter.
	// If the filter is zero-valued, all records are returned.
	ListRuns(filter RunFilter) ([]*RunRecord, error)
}
