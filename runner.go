package toil

import (
	"context"
	"errors"
	"sync"

	"github.com/askoja/toil/pkg/dispatch"
	"github.com/askoja/toil/pkg/worker"
)

// Runner bundles a worker, its signal bundle, and a single-worker dispatcher
// with an event pump goroutine, to provide a simple "it just works" entry
// point for one recyclable background job.
//
// Typical usage:
//
//	runner := toil.NewRunner(hook)
//	runner.Signals.OnResult(func(v any) { ... })
//
//	_ = runner.Start(ctx)      // starts the event pump
//	_ = runner.Run(ctx)        // dispatches one run
//	...
//	runner.Stop()
//
// Handlers registered on Signals execute on the pump goroutine, never on the
// worker goroutine.
type Runner struct {
	// Worker is the state machine driven by this runner.
	Worker *worker.Worker

	// Signals is the worker's event bundle. Register handlers before Start.
	Signals *worker.Signals

	// Dispatcher is the single-worker dispatcher the run executes on.
	Dispatcher *dispatch.Lone

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a Runner for the given hook with a fresh signal
// bundle and dispatcher.
func NewRunner(hook Hook, opts ...WorkerOption) *Runner {
	signals := worker.NewSignals()
	w := worker.New(signals, hook, opts...)
	d := dispatch.NewLone("runner")

	// Adopt cannot fail on a fresh dispatcher.
	if err := d.Adopt(w); err != nil {
		panic("toil: adopt on fresh dispatcher failed: " + err.Error())
	}

	return &Runner{
		Worker:     w,
		Signals:    signals,
		Dispatcher: d,
	}
}

// Start launches the event pump goroutine, which dispatches queued events to
// the handlers registered on Signals until Stop is called or ctx ends.
//
// If Start is called again without Stop, it returns an error.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("toil: runner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		for {
			// Pump returns at each finished event; keep pumping so a
			// recycled worker's next run is delivered too.
			if _, err := r.Signals.Pump(ctx); err != nil {
				return
			}
		}
	}()

	return nil
}

// Run dispatches one run of the worker. If the worker is paused, Run
// resumes it instead.
func (r *Runner) Run(ctx context.Context) error {
	return r.Dispatcher.Start(ctx)
}

// Pause requests a pause at the run's next checkpoint.
func (r *Runner) Pause() error {
	return r.Dispatcher.Pause()
}

// Resume lifts a pause.
func (r *Runner) Resume() error {
	return r.Dispatcher.Resume()
}

// Cancel requests cooperative cancellation of the current run.
func (r *Runner) Cancel() error {
	return r.Dispatcher.Stop()
}

// Stop halts the dispatcher, cancels the event pump, and waits for both to
// exit. The worker is deleted and the Runner cannot be restarted.
//
// Stop is safe to call whether or not Start was ever called; the
// dispatcher goroutine created by NewRunner is torn down either way.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	r.Dispatcher.Halt()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}
