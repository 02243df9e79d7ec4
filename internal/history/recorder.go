package history

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/askoja/toil/pkg/api"
)

// Recorder is an api.Observer that mirrors every run into a RunHistory.
//
// A record is inserted as RUNNING when the run starts, its progress is kept
// current, and the terminal callback settles it as COMPLETED, FAILED or
// CANCELLED. Store errors are logged and swallowed: bookkeeping must never
// affect the run itself.
type Recorder struct {
	store api.RunHistory
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[string]*api.RunRecord
}

// Ensure Recorder implements Observer.
var _ api.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store api.RunHistory, log zerolog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		log:     log,
		pending: make(map[string]*api.RunRecord),
	}
}

func (r *Recorder) OnRunStart(ctx context.Context, run api.RunInfo) {
	rec := &api.RunRecord{
		RunID:     run.RunID,
		WorkerID:  run.WorkerID,
		Name:      run.Name,
		Outcome:   api.OutcomeRunning,
		StartedAt: run.StartedAt,
	}

	r.mu.Lock()
	r.pending[run.RunID] = rec
	r.mu.Unlock()

	if err := r.store.SaveRun(rec); err != nil {
		r.log.Error().Err(err).Str("runID", run.RunID).Msg("failed to record run start")
	}
}

func (r *Recorder) OnProgress(ctx context.Context, run api.RunInfo, pct int) {
	rec := r.take(run.RunID, false)
	if rec == nil {
		return
	}
	rec.Progress = pct

	if err := r.store.UpdateRun(rec); err != nil {
		r.log.Error().Err(err).Str("runID", run.RunID).Msg("failed to record progress")
	}
}

func (r *Recorder) OnRunCompleted(ctx context.Context, run api.RunInfo, d time.Duration) {
	r.settle(run, api.OutcomeCompleted, "")
}

func (r *Recorder) OnRunFailed(ctx context.Context, run api.RunInfo, werr *api.WorkError, d time.Duration) {
	msg := ""
	if werr != nil {
		msg = werr.Error()
	}
	r.settle(run, api.OutcomeFailed, msg)
}

func (r *Recorder) OnRunCancelled(ctx context.Context, run api.RunInfo, d time.Duration) {
	r.settle(run, api.OutcomeCancelled, "")
}

func (r *Recorder) settle(run api.RunInfo, outcome api.Outcome, errText string) {
	rec := r.take(run.RunID, true)
	if rec == nil {
		return
	}
	rec.Outcome = outcome
	rec.FinishedAt = time.Now()
	rec.Error = errText

	if err := r.store.UpdateRun(rec); err != nil {
		r.log.Error().Err(err).Str("runID", run.RunID).Msg("failed to record run outcome")
	}
}

// take returns the pending record for runID, removing it when the run has
// settled. Callbacks for one run arrive from a single goroutine, but
// distinct runs may record concurrently.
func (r *Recorder) take(runID string, remove bool) *api.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.pending[runID]
	if rec != nil && remove {
		delete(r.pending, runID)
	}
	return rec
}
