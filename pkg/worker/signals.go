package worker

import (
	"context"
	"sync"

	"github.com/askoja/toil/pkg/api"
)

// DefaultSignalBuffer is the event queue capacity used by NewSignals.
const DefaultSignalBuffer = 64

// Signals is the notification bundle connecting a worker run to its owner.
//
// The worker goroutine emits events into an internal queue; the owner
// dispatches them to registered handlers by calling Drain or Pump. Handlers
// therefore always execute in the owner's goroutine, never the worker's,
// and events are handled in emission order.
//
// Handler registration replaces the implicit constructor self-wiring of
// signal/slot frameworks: construct the bundle, register handlers
// explicitly, then hand the pair to a dispatcher.
type Signals struct {
	ch chan api.Event

	mu         sync.Mutex
	onStarted  []func()
	onProgress []func(pct int)
	onResult   []func(v any)
	onError    []func(werr *api.WorkError)
	onFinished []func(success bool)
}

// NewSignals creates a Signals bundle with the default queue capacity.
func NewSignals() *Signals {
	return NewSignalsBuffer(DefaultSignalBuffer)
}

// NewSignalsBuffer creates a Signals bundle whose event queue holds up to
// buffer events. A worker emitting into a full queue blocks until the owner
// drains; events are never dropped.
func NewSignalsBuffer(buffer int) *Signals {
	if buffer <= 0 {
		buffer = DefaultSignalBuffer
	}
	return &Signals{ch: make(chan api.Event, buffer)}
}

// OnStarted registers a handler for the started event.
func (s *Signals) OnStarted(fn func()) *Signals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStarted = append(s.onStarted, fn)
	return s
}

// OnProgress registers a handler for progress events. pct is in 0..100.
func (s *Signals) OnProgress(fn func(pct int)) *Signals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = append(s.onProgress, fn)
	return s
}

// OnResult registers a handler for the result event. The value is handed
// over with the emission; the worker no longer touches it.
func (s *Signals) OnResult(fn func(v any)) *Signals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = append(s.onResult, fn)
	return s
}

// OnError registers a handler for the error event.
func (s *Signals) OnError(fn func(werr *api.WorkError)) *Signals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
	return s
}

// OnFinished registers a handler for the finished event, delivered exactly
// once per run, after everything else.
func (s *Signals) OnFinished(fn func(success bool)) *Signals {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinished = append(s.onFinished, fn)
	return s
}

// Events exposes the raw event queue for owners that integrate the bundle
// into their own select loop instead of using Drain/Pump. Events received
// this way bypass the registered handlers.
func (s *Signals) Events() <-chan api.Event {
	return s.ch
}

// emit queues ev for the owner. Called from the worker goroutine.
func (s *Signals) emit(ev api.Event) {
	s.ch <- ev
}

// Drain dispatches every event currently queued, in order, in the calling
// goroutine, and returns how many were handled. It never blocks: an empty
// queue yields 0.
func (s *Signals) Drain() int {
	n := 0
	for {
		select {
		case ev := <-s.ch:
			s.dispatch(ev)
			n++
		default:
			return n
		}
	}
}

// Pump dispatches events in the calling goroutine until a finished event
// has been handled, and returns its success flag. If ctx is cancelled
// first, Pump returns ctx.Err.
func (s *Signals) Pump(ctx context.Context) (bool, error) {
	for {
		select {
		case ev := <-s.ch:
			s.dispatch(ev)
			if ev.Type == api.EventFinished {
				return ev.Success, nil
			}
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func (s *Signals) dispatch(ev api.Event) {
	s.mu.Lock()
	var fns []func(api.Event)
	switch ev.Type {
	case api.EventStarted:
		for _, fn := range s.onStarted {
			fn := fn
			fns = append(fns, func(api.Event) { fn() })
		}
	case api.EventProgress:
		for _, fn := range s.onProgress {
			fn := fn
			fns = append(fns, func(ev api.Event) { fn(ev.Progress) })
		}
	case api.EventResult:
		for _, fn := range s.onResult {
			fn := fn
			fns = append(fns, func(ev api.Event) { fn(ev.Result) })
		}
	case api.EventError:
		for _, fn := range s.onError {
			fn := fn
			fns = append(fns, func(ev api.Event) { fn(ev.Err) })
		}
	case api.EventFinished:
		for _, fn := range s.onFinished {
			fn := fn
			fns = append(fns, func(ev api.Event) { fn(ev.Success) })
		}
	}
	s.mu.Unlock()

	// Handlers run outside the lock so they may register further handlers.
	for _, fn := range fns {
		fn(ev)
	}
}
