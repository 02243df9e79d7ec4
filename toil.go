package toil

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/askoja/toil/internal/history"
	"github.com/askoja/toil/pkg/api"
	"github.com/askoja/toil/pkg/dispatch"
	"github.com/askoja/toil/pkg/worker"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	State                = api.State
	Event                = api.Event
	EventType            = api.EventType
	WorkError            = api.WorkError
	RunInfo              = api.RunInfo
	Outcome              = api.Outcome
	RunRecord            = api.RunRecord
	RunFilter            = api.RunFilter
	RunHistory           = api.RunHistory
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Worker       = worker.Worker
	Signals      = worker.Signals
	Hook         = worker.Hook
	RunContext   = worker.RunContext
	WorkerOption = worker.Option

	Lone       = dispatch.Lone
	Pool       = dispatch.Pool
	PoolConfig = dispatch.PoolConfig
	PoolStats  = dispatch.PoolStats
)

// Re-export state values for convenience.

const (
	StateIdle    = api.StateIdle
	StateWorking = api.StateWorking
	StatePaused  = api.StatePaused
	StateDeleted = api.StateDeleted
)

// Re-export run outcomes.

const (
	OutcomeRunning   = api.OutcomeRunning
	OutcomeCompleted = api.OutcomeCompleted
	OutcomeFailed    = api.OutcomeFailed
	OutcomeCancelled = api.OutcomeCancelled
)

// Re-export sentinel errors.

var (
	ErrCancelled        = api.ErrCancelled
	ErrAlreadyRunning   = api.ErrAlreadyRunning
	ErrWorkerDeleted    = api.ErrWorkerDeleted
	ErrAlreadyAdopted   = api.ErrAlreadyAdopted
	ErrNothingAdopted   = api.ErrNothingAdopted
	ErrDispatcherHalted = api.ErrDispatcherHalted
	ErrPoolStopped      = api.ErrPoolStopped
	ErrQueueFull        = api.ErrQueueFull
	ErrRunNotFound      = api.ErrRunNotFound
)

// Re-export constructors and options.

var (
	NewWorker        = worker.New
	NewSignals       = worker.NewSignals
	NewSignalsBuffer = worker.NewSignalsBuffer
	WithName         = worker.WithName
	WithID           = worker.WithID
	WithObserver     = worker.WithObserver
	WithLogger       = worker.WithLogger

	NewLone           = dispatch.NewLone
	NewPool           = dispatch.NewPool
	NewPoolWithConfig = dispatch.NewPoolWithConfig
	DefaultPoolConfig = dispatch.DefaultPoolConfig

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// History constructors
// These wrap the internal/history package so external callers
// never need to import internal packages.

// NewMemoryHistory returns a RunHistory kept entirely in memory.
func NewMemoryHistory() RunHistory {
	return history.NewMemoryHistory()
}

// NewSQLiteHistory returns a RunHistory that persists run records
// in a SQLite database.
func NewSQLiteHistory(db *sql.DB) (RunHistory, error) {
	return history.NewSQLiteHistory(db)
}

// NewPostgresHistory returns a RunHistory that persists run records
// in PostgreSQL.
func NewPostgresHistory(db *sql.DB) (RunHistory, error) {
	return history.NewPostgresHistory(db)
}

// NewHistoryRecorder returns an Observer that mirrors every run into the
// given RunHistory. Attach it with WithObserver.
func NewHistoryRecorder(store RunHistory, log zerolog.Logger) Observer {
	return history.NewRecorder(store, log)
}
