package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RunInfo identifies one execution of a worker's hook.
type RunInfo struct {
	// WorkerID identifies the worker; stable across runs of a recyclable
	// worker.
	WorkerID string

	// RunID identifies this execution. A fresh ID is issued per run.
	RunID string

	// Name is the caller-supplied job name, empty if none was set.
	Name string

	// StartedAt is when the run entered the working state.
	StartedAt time.Time
}

// Observer receives callbacks from the worker for logging and metrics.
//
// Callbacks run synchronously in the worker goroutine, before the matching
// event is queued to the owner. Implementations should be fast and
// non-blocking; heavy work should be done asynchronously so as not to delay
// the hook.
type Observer interface {
	// OnRunStart is called once when a run begins, before the hook is
	// invoked.
	OnRunStart(ctx context.Context, run RunInfo)

	// OnProgress is called for every progress report from the hook.
	OnProgress(ctx context.Context, run RunInfo, pct int)

	// OnRunCompleted is called when the hook returns successfully.
	OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration)

	// OnRunFailed is called when the hook returns an error or panics.
	OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration)

	// OnRunCancelled is called when the run terminated cooperatively via a
	// checkpoint. Cancellation is not a failure; OnRunFailed is not called.
	OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run RunInfo)                      {}
func (NoopObserver) OnProgress(ctx context.Context, run RunInfo, pct int)             {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration) {}
func (NoopObserver) OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration) {
}
func (NoopObserver) OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration) {}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run RunInfo) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnProgress(ctx context.Context, run RunInfo, pct int) {
	for _, o := range c.observers {
		o.OnProgress(ctx, run, pct)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run, d)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, werr, d)
	}
}

func (c *CompositeObserver) OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunCancelled(ctx, run, d)
	}
}

// LoggingObserver writes structured logs using zerolog.
type LoggingObserver struct {
	Logger zerolog.Logger
}

// NewLoggingObserver creates an Observer that logs run lifecycle events
// using the provided zerolog.Logger.
func NewLoggingObserver(logger zerolog.Logger) Observer {
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run RunInfo) {
	o.Logger.Info().
		Str("workerID", run.WorkerID).
		Str("runID", run.RunID).
		Str("name", run.Name).
		Msg("run started")
}

func (o *LoggingObserver) OnProgress(ctx context.Context, run RunInfo, pct int) {
	o.Logger.Debug().
		Str("workerID", run.WorkerID).
		Str("runID", run.RunID).
		Int("progress", pct).
		Msg("run progress")
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration) {
	o.Logger.Info().
		Str("workerID", run.WorkerID).
		Str("runID", run.RunID).
		Dur("duration", d).
		Msg("run completed")
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration) {
	o.Logger.Error().
		Str("workerID", run.WorkerID).
		Str("runID", run.RunID).
		Str("kind", werr.Kind).
		Str("error", werr.Message).
		Dur("duration", d).
		Msg("run failed")
}

func (o *LoggingObserver) OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration) {
	o.Logger.Info().
		Str("workerID", run.WorkerID).
		Str("runID", run.RunID).
		Dur("duration", d).
		Msg("run cancelled")
}

// BasicMetrics collects simple counters and aggregate run durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64
	runsCancelled atomic.Int64
	totalDuration atomic.Int64 // nanoseconds, successful runs only
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCancelled int64
	RunsInFlight  int64

	AvgRunDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run RunInfo) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run RunInfo, d time.Duration) {
	m.runsCompleted.Add(1)
	m.totalDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run RunInfo, werr *WorkError, d time.Duration) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnRunCancelled(ctx context.Context, run RunInfo, d time.Duration) {
	m.runsCancelled.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	cancelled := m.runsCancelled.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(totalNs / completed)
	}

	return BasicMetricsSnapshot{
		RunsStarted:    started,
		RunsCompleted:  completed,
		RunsFailed:     failed,
		RunsCancelled:  cancelled,
		RunsInFlight:   started - completed - failed - cancelled,
		AvgRunDuration: avg,
	}
}
