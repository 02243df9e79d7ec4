package worker

import (
	"context"
	"time"

	"github.com/askoja/toil/pkg/api"
)

// RunContext is handed to the hook for the duration of one run. It is the
// hook's only channel back into the framework: progress reporting and the
// cooperative checkpoint. It must not escape the run.
type RunContext struct {
	w   *Worker
	ctx context.Context
	run api.RunInfo
}

// Context returns the run-scoped context. Hooks should thread it through
// any blocking calls they make between checkpoints.
func (rc *RunContext) Context() context.Context {
	return rc.ctx
}

// Info returns the identifiers of this run.
func (rc *RunContext) Info() api.RunInfo {
	return rc.run
}

// Progress reports completion as a percentage, clamped to 0..100, and
// queues a progress event for the owner.
func (rc *RunContext) Progress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	rc.w.obs.OnProgress(rc.ctx, rc.run, pct)
	rc.w.signals.emit(api.Event{
		WorkerID: rc.w.id,
		RunID:    rc.run.RunID,
		Type:     api.EventProgress,
		At:       time.Now(),
		Progress: pct,
	})
}

// Checkpoint is the cooperative suspension and cancellation point. The hook
// must call it periodically, and only where partial progress is safe to
// abandon.
//
// While the worker is PAUSED, Checkpoint blocks the run on a condition
// variable until Resume, Stop, a Start-as-resume, or context cancellation
// wakes it. It returns nil when the run should continue, or
// api.ErrCancelled when a stop arrived or the run's context was cancelled.
// The hook must return that error unchanged; Worker.Start is its sole
// catcher.
func (rc *RunContext) Checkpoint() error {
	rc.w.mu.Lock()
	for rc.w.state == api.StatePaused && rc.ctx.Err() == nil {
		rc.w.cond.Wait()
	}
	st := rc.w.state
	rc.w.mu.Unlock()

	if st != api.StateWorking {
		return api.ErrCancelled
	}
	if rc.ctx.Err() != nil {
		return api.ErrCancelled
	}
	return nil
}
