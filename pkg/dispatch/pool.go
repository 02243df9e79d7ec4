package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/askoja/toil/pkg/api"
	"github.com/askoja/toil/pkg/worker"
)

var (
	ErrInvalidWorkerCount = errors.New("toil: invalid worker count")
	ErrInvalidQueueSize   = errors.New("toil: invalid queue size")
)

// PoolConfig holds configuration for the fire-and-forget pool.
type PoolConfig struct {
	NumWorkers      int
	QueueSize       int
	RunTimeout      time.Duration // 0 means no per-run timeout
	ShutdownTimeout time.Duration // wait for in-flight runs on Stop
	Logger          zerolog.Logger
	Observer        api.Observer
}

// DefaultPoolConfig returns a sensible default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:      8,
		QueueSize:       64,
		ShutdownTimeout: 10 * time.Second,
		Logger:          zerolog.Nop(),
		Observer:        api.NoopObserver{},
	}
}

// submission is one queued unit of work: the hook plus the companion
// signal bundle constructed by the submitter. The bundle is the only
// channel through which the submitter observes the run.
type submission struct {
	signals *worker.Signals
	hook    worker.Hook
	opts    []worker.Option
}

// Pool runs fire-and-forget submissions on a fixed set of goroutines.
//
// Each submission is wrapped in a throwaway worker (the same state
// machine the Lone dispatcher drives), run exactly once, and torn down by
// the pool goroutine after its finished event has been queued. No handle
// is returned: pooled runs cannot be paused or resumed, only cancelled via
// the context given to Start or the per-run timeout.
type Pool struct {
	cfg  PoolConfig
	subs chan submission
	quit chan struct{}
	wg   sync.WaitGroup

	// submitters counts Submit calls in flight between the stopped check
	// and their send. Stop waits for it to drain before closing quit, so
	// an accepted submission can never slip in after the final drain.
	submitters sync.WaitGroup

	once     sync.Once
	stopOnce sync.Once

	activeWorkers int64
	runsQueued    int64
	runsDone      int64

	started bool
	stopped bool
	mu      sync.RWMutex
}

// NewPool creates a pool with the given worker count and submission queue
// size, using defaults for everything else.
func NewPool(numWorkers, queueSize int) (*Pool, error) {
	cfg := DefaultPoolConfig()
	cfg.NumWorkers = numWorkers
	cfg.QueueSize = queueSize
	return NewPoolWithConfig(cfg)
}

// NewPoolWithConfig creates a pool with custom configuration.
func NewPoolWithConfig(cfg PoolConfig) (*Pool, error) {
	if cfg.NumWorkers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if cfg.QueueSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}

	return &Pool{
		cfg:  cfg,
		subs: make(chan submission, cfg.QueueSize),
		quit: make(chan struct{}),
	}, nil
}

// Start launches the pool goroutines. ctx bounds every run the pool
// executes; cancelling it cooperatively cancels in-flight runs at their
// next checkpoint.
func (p *Pool) Start(ctx context.Context, poolID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	if p.stopped {
		p.cfg.Logger.Error().Str("poolID", poolID).Msg("cannot start a stopped pool")
		return
	}

	p.once.Do(func() {
		p.started = true
		p.startWorkers(ctx, poolID)
		p.cfg.Logger.Info().
			Str("poolID", poolID).
			Int("numWorkers", p.cfg.NumWorkers).
			Msg("pool started")
	})
}

// Stop gracefully stops the pool: no further submissions are accepted,
// queued submissions still run, and Stop waits up to ShutdownTimeout for
// in-flight runs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		// Let in-flight submitters finish their sends first. Workers are
		// still consuming, so a submitter blocked on a full queue gets
		// through. subs itself stays open: a submitter racing Stop must
		// never hit a closed channel.
		p.submitters.Wait()
		close(p.quit)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.cfg.Logger.Info().Msg("all pool workers stopped")
		case <-time.After(p.cfg.ShutdownTimeout):
			p.cfg.Logger.Warn().
				Dur("timeout", p.cfg.ShutdownTimeout).
				Msg("pool shutdown timeout exceeded")
		}
	})
}

// Submit queues hook for execution, blocking until there is queue space,
// the pool stops, or ctx is done. signals is the companion bundle through
// which the submitter observes the run; it must not be nil.
func (p *Pool) Submit(ctx context.Context, signals *worker.Signals, hook worker.Hook, opts ...worker.Option) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return api.ErrPoolStopped
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	// The send happens outside the lock so a submitter blocked on a full
	// queue cannot keep Stop from taking the write lock. Stop waits for
	// the submitters group before quitting, so this send always has a
	// consumer: either a pool goroutine's main loop or its final drain.
	select {
	case p.subs <- submission{signals: signals, hook: hook, opts: opts}:
		atomic.AddInt64(&p.runsQueued, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitNonBlocking queues hook without blocking; a full queue yields
// ErrQueueFull.
func (p *Pool) SubmitNonBlocking(signals *worker.Signals, hook worker.Hook, opts ...worker.Option) error {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return api.ErrPoolStopped
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	select {
	case p.subs <- submission{signals: signals, hook: hook, opts: opts}:
		atomic.AddInt64(&p.runsQueued, 1)
		return nil
	default:
		return api.ErrQueueFull
	}
}

// PoolStats holds counters describing the pool.
type PoolStats struct {
	ActiveWorkers int64
	RunsQueued    int64
	RunsDone      int64
	RunsInQueue   int64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		ActiveWorkers: atomic.LoadInt64(&p.activeWorkers),
		RunsQueued:    atomic.LoadInt64(&p.runsQueued),
		RunsDone:      atomic.LoadInt64(&p.runsDone),
		RunsInQueue:   int64(len(p.subs)),
	}
}

func (p *Pool) startWorkers(ctx context.Context, poolID string) {
	for i := 0; i < p.cfg.NumWorkers; i++ {
		p.wg.Add(1)
		go func(workerNum int) {
			defer p.wg.Done()
			atomic.AddInt64(&p.activeWorkers, 1)
			defer atomic.AddInt64(&p.activeWorkers, -1)

			p.cfg.Logger.Debug().
				Str("poolID", poolID).
				Int("workerNum", workerNum).
				Msg("pool worker started")

		loop:
			for {
				select {
				case sub := <-p.subs:
					p.execute(ctx, sub, workerNum, poolID)
				case <-p.quit:
					// Drain whatever was queued before the stop, then exit.
					for {
						select {
						case sub := <-p.subs:
							p.execute(ctx, sub, workerNum, poolID)
						default:
							break loop
						}
					}
				}
			}

			p.cfg.Logger.Debug().
				Str("poolID", poolID).
				Int("workerNum", workerNum).
				Msg("pool worker stopped")
		}(i)
	}
}

// execute runs one submission to completion on the calling pool goroutine.
func (p *Pool) execute(ctx context.Context, sub submission, workerNum int, poolID string) {
	runCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	opts := append([]worker.Option{
		worker.WithObserver(p.cfg.Observer),
		worker.WithLogger(p.cfg.Logger),
	}, sub.opts...)

	// Throwaway worker: lives for exactly this run, torn down here once
	// Start has returned (its finished event is queued by then).
	w := worker.New(sub.signals, sub.hook, opts...)

	start := time.Now()
	if err := w.Start(runCtx); err != nil {
		p.cfg.Logger.Warn().
			Str("poolID", poolID).
			Int("workerNum", workerNum).
			Err(err).
			Msg("pooled run rejected")
		return
	}
	atomic.AddInt64(&p.runsDone, 1)

	p.cfg.Logger.Debug().
		Str("poolID", poolID).
		Int("workerNum", workerNum).
		Str("workerID", w.ID()).
		Dur("duration", time.Since(start)).
		Msg("pooled run finished")
}
