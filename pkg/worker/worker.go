package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/askoja/toil/pkg/api"
)

// Hook is the caller-supplied work function. It runs to completion on a
// dispatcher goroutine, calling rc.Checkpoint at interruptible points and
// rc.Progress to report completion. A Hook must propagate the error from
// Checkpoint unchanged; returning any other error marks the run failed.
type Hook func(rc *RunContext) (any, error)

// Option configures a Worker.
type Option func(*Worker)

// WithName sets a job name carried in run records and log fields.
func WithName(name string) Option {
	return func(w *Worker) {
		w.name = name
	}
}

// WithID sets a custom worker ID instead of the generated UUID.
func WithID(id string) Option {
	return func(w *Worker) {
		w.id = id
	}
}

// WithObserver attaches an observer receiving synchronous lifecycle
// callbacks in the worker goroutine.
func WithObserver(obs api.Observer) Option {
	return func(w *Worker) {
		if obs != nil {
			w.obs = obs
		}
	}
}

// WithLogger sets the logger used for protocol warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Worker) {
		w.log = logger
	}
}

// Worker is the cooperative background execution state machine. It owns its
// state exclusively; all mutation goes through Start, Stop, Pause, and
// Resume, serialized by an internal mutex.
//
// A Worker is recyclable: once a run has returned it to IDLE it may be
// started again any number of times, until a dispatcher marks it DELETED.
type Worker struct {
	id   string
	name string

	hook    Hook
	signals *Signals
	obs     api.Observer
	log     zerolog.Logger

	mu    sync.Mutex
	cond  *sync.Cond // broadcast whenever state leaves PAUSED
	state api.State
}

// New constructs a Worker bound to the given signal bundle and hook.
//
// Construct the worker in the owner goroutine, register handlers on the
// bundle, then hand the worker to a dispatcher; the hook itself runs on the
// dispatcher's goroutine.
func New(signals *Signals, hook Hook, opts ...Option) *Worker {
	if signals == nil {
		panic("toil: worker requires a signals bundle")
	}
	if hook == nil {
		panic("toil: worker requires a hook")
	}

	w := &Worker{
		id:      uuid.Must(uuid.NewV7()).String(),
		hook:    hook,
		signals: signals,
		obs:     api.NoopObserver{},
		log:     zerolog.Nop(),
		state:   api.StateIdle,
	}
	w.cond = sync.NewCond(&w.mu)

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Name returns the job name, empty if none was set.
func (w *Worker) Name() string {
	return w.name
}

// State returns the current state. It is a synchronized snapshot; the state
// may change immediately after this returns.
func (w *Worker) State() api.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Signals returns the bundle this worker emits into.
func (w *Worker) Signals() *Signals {
	return w.signals
}

// Start runs the hook to completion on the calling goroutine.
//
// From IDLE it transitions to WORKING, emits started, and invokes the hook.
// From PAUSED it acts as Resume: the goroutine blocked at a checkpoint
// observes the change and proceeds; the hook is NOT re-invoked and Start
// returns immediately. From WORKING it is rejected with ErrAlreadyRunning
// so that at most one run is ever in flight.
//
// ctx is the run's cancellation token: once it is cancelled the next
// checkpoint terminates the run cooperatively.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case api.StateDeleted:
		w.mu.Unlock()
		return api.ErrWorkerDeleted
	case api.StateWorking:
		w.mu.Unlock()
		w.log.Warn().Str("workerID", w.id).Msg("start ignored: worker already running")
		return api.ErrAlreadyRunning
	case api.StatePaused:
		w.state = api.StateWorking
		w.cond.Broadcast()
		w.mu.Unlock()
		return nil
	}
	w.state = api.StateWorking
	w.mu.Unlock()

	run := api.RunInfo{
		WorkerID:  w.id,
		RunID:     uuid.Must(uuid.NewV7()).String(),
		Name:      w.name,
		StartedAt: time.Now(),
	}

	// A cancelled context must also wake a checkpoint that is blocked in
	// the paused wait, not only be polled by running checkpoints.
	stopWatch := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer stopWatch()

	w.obs.OnRunStart(ctx, run)
	w.signals.emit(api.Event{
		WorkerID: w.id,
		RunID:    run.RunID,
		Type:     api.EventStarted,
		At:       time.Now(),
	})

	rc := &RunContext{w: w, ctx: ctx, run: run}
	result, err := w.invoke(rc)
	elapsed := time.Since(run.StartedAt)

	success := false
	switch {
	case errors.Is(err, api.ErrCancelled):
		// Clean cooperative termination: no result, no error event.
		w.obs.OnRunCancelled(ctx, run, elapsed)
	case err != nil:
		werr := newWorkError(err)
		w.obs.OnRunFailed(ctx, run, werr, elapsed)
		w.signals.emit(api.Event{
			WorkerID: w.id,
			RunID:    run.RunID,
			Type:     api.EventError,
			At:       time.Now(),
			Err:      werr,
		})
	default:
		success = true
		w.obs.OnRunCompleted(ctx, run, elapsed)
		w.signals.emit(api.Event{
			WorkerID: w.id,
			RunID:    run.RunID,
			Type:     api.EventResult,
			At:       time.Now(),
			Result:   result,
		})
	}

	w.mu.Lock()
	if w.state == api.StateWorking || w.state == api.StatePaused {
		w.state = api.StateIdle
	}
	w.mu.Unlock()

	w.signals.emit(api.Event{
		WorkerID: w.id,
		RunID:    run.RunID,
		Type:     api.EventFinished,
		At:       time.Now(),
		Success:  success,
	})
	return nil
}

// Stop requests cooperative termination of the current run. It flags the
// state back to IDLE and returns immediately; the run actually ends at its
// next checkpoint. Calling Stop while IDLE is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case api.StateWorking, api.StatePaused:
		w.state = api.StateIdle
		w.cond.Broadcast()
	}
}

// Pause asks the current run to suspend at its next checkpoint. Outside
// WORKING it is a no-op: a pause request may race a run's natural
// completion and that race must not be fatal.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == api.StateWorking {
		w.state = api.StatePaused
	}
}

// Resume lets a paused run proceed from the checkpoint it is blocked in.
// Outside PAUSED it is a no-op.
func (w *Worker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == api.StatePaused {
		w.state = api.StateWorking
		w.cond.Broadcast()
	}
}

// Delete marks the worker as scheduled for teardown. Any run still in
// flight terminates at its next checkpoint; after Delete the worker must
// not be reused. Called by dispatchers during halt, not by application
// code.
func (w *Worker) Delete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == api.StateDeleted {
		return
	}
	w.state = api.StateDeleted
	w.cond.Broadcast()
}

// invoke runs the hook, converting a panic into an error carrying the
// recovered value and the formatted stack.
func (w *Worker) invoke(rc *RunContext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, trace: string(debug.Stack())}
		}
	}()
	return w.hook(rc)
}

// panicError wraps a recovered panic value with its stack trace.
type panicError struct {
	value any
	trace string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func newWorkError(err error) *api.WorkError {
	var perr *panicError
	if errors.As(err, &perr) {
		kind := "panic"
		if inner, ok := perr.value.(error); ok {
			kind = fmt.Sprintf("%T", inner)
		}
		return &api.WorkError{
			Kind:    kind,
			Message: fmt.Sprintf("%v", perr.value),
			Trace:   perr.trace,
		}
	}
	return &api.WorkError{
		Kind:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
}
