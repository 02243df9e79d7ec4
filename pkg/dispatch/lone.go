package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/askoja/toil/pkg/api"
	"github.com/askoja/toil/pkg/worker"
)

// Lone is the single-worker dispatcher: a dedicated goroutine that runs the
// adopted worker's hook. At most one worker may be adopted at a time;
// adopting a second without unadopting the first is a protocol error.
//
// Control calls (Pause, Resume, Stop) act on the adopted worker directly.
// They never queue behind the run, so a worker parked at a paused
// checkpoint can always be woken.
type Lone struct {
	name string
	log  zerolog.Logger

	mu      sync.Mutex
	adopted *worker.Worker
	halted  bool

	runs chan runRequest
	quit chan struct{}
	wg   sync.WaitGroup
}

type runRequest struct {
	w   *worker.Worker
	ctx context.Context
}

// LoneOption configures a Lone dispatcher.
type LoneOption func(*Lone)

// WithLogger sets the logger used for run-loop warnings.
func WithLogger(logger zerolog.Logger) LoneOption {
	return func(d *Lone) {
		d.log = logger
	}
}

// NewLone creates a dispatcher with the given name and starts its
// goroutine. The name is purely an identifier for logs and introspection.
func NewLone(name string, opts ...LoneOption) *Lone {
	d := &Lone{
		name: name,
		log:  zerolog.Nop(),
		runs: make(chan runRequest, 1),
		quit: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Lone) loop() {
	defer d.wg.Done()
	for {
		select {
		case req := <-d.runs:
			if err := req.w.Start(req.ctx); err != nil {
				d.log.Warn().
					Str("dispatcher", d.name).
					Str("workerID", req.w.ID()).
					Err(err).
					Msg("scheduled run rejected")
			}
		case <-d.quit:
			// A request queued just before the halt still gets handled;
			// the worker is deleted by now, so Start rejects it.
			select {
			case req := <-d.runs:
				if err := req.w.Start(req.ctx); err != nil {
					d.log.Warn().
						Str("dispatcher", d.name).
						Str("workerID", req.w.ID()).
						Err(err).
						Msg("scheduled run rejected")
				}
			default:
			}
			return
		}
	}
}

// Name returns the dispatcher's identifier.
func (d *Lone) Name() string {
	return d.name
}

// Adopt takes ownership of w. It fails with ErrAlreadyAdopted if a worker
// is already adopted, and with ErrDispatcherHalted after Halt.
func (d *Lone) Adopt(w *worker.Worker) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return api.ErrDispatcherHalted
	}
	if d.adopted != nil {
		return api.ErrAlreadyAdopted
	}
	d.adopted = w
	return nil
}

// Unadopt detaches and returns the adopted worker. It fails with
// ErrNothingAdopted if there is none.
//
// Unadopt does not stop an in-flight run: a caller detaching a WORKING
// worker is expected to have requested Stop already.
func (d *Lone) Unadopt() (*worker.Worker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.adopted == nil {
		return nil, api.ErrNothingAdopted
	}
	w := d.adopted
	d.adopted = nil
	return w, nil
}

// Worker returns the adopted worker, or nil.
func (d *Lone) Worker() *worker.Worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adopted
}

// Start schedules a run of the adopted worker on the dispatcher goroutine
// and returns without waiting for it.
//
// If the worker is PAUSED, Start resumes it instead (the parked run
// proceeds; no new run begins). If it is WORKING, or a run is already
// queued, Start is rejected with ErrAlreadyRunning rather than queued, so
// at most one logical run is ever in flight.
func (d *Lone) Start(ctx context.Context) error {
	// The halted check and the send stay under one critical section:
	// a Start racing Halt must either be rejected or queue its request
	// before Halt runs, never fall in between.
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.halted {
		return api.ErrDispatcherHalted
	}
	w := d.adopted
	if w == nil {
		return api.ErrNothingAdopted
	}

	switch w.State() {
	case api.StateDeleted:
		return api.ErrWorkerDeleted
	case api.StateWorking:
		return api.ErrAlreadyRunning
	case api.StatePaused:
		// Resume the parked run; Worker.Start returns immediately here.
		return w.Start(ctx)
	}

	select {
	case d.runs <- runRequest{w: w, ctx: ctx}:
		return nil
	default:
		return api.ErrAlreadyRunning
	}
}

// Pause forwards to the adopted worker.
func (d *Lone) Pause() error {
	w := d.Worker()
	if w == nil {
		return api.ErrNothingAdopted
	}
	w.Pause()
	return nil
}

// Resume forwards to the adopted worker.
func (d *Lone) Resume() error {
	w := d.Worker()
	if w == nil {
		return api.ErrNothingAdopted
	}
	w.Resume()
	return nil
}

// Stop forwards to the adopted worker.
func (d *Lone) Stop() error {
	w := d.Worker()
	if w == nil {
		return api.ErrNothingAdopted
	}
	w.Stop()
	return nil
}

// Halt tears the dispatcher down: it unadopts any worker (requesting a
// cooperative stop of an in-flight run and marking the worker DELETED),
// signals the dispatcher goroutine to exit, and blocks until it has
// actually exited. Halt is idempotent.
//
// The run queue itself is never closed; a Start racing Halt must not be
// able to send on a closed channel.
func (d *Lone) Halt() {
	d.mu.Lock()
	if d.halted {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.halted = true
	w := d.adopted
	d.adopted = nil
	d.mu.Unlock()

	if w != nil {
		w.Stop()
		w.Delete()
	}

	close(d.quit)
	d.wg.Wait()
}
