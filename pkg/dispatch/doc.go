// Package dispatch binds workers to goroutines.
//
// Two strategies exist, sharing the single state-machine type from
// pkg/worker:
//
//   - Lone owns a dedicated goroutine and zero or one adopted worker at a
//     time. The adopted worker is recyclable: it can be started, paused,
//     resumed, stopped, and started again, until Halt tears everything
//     down.
//
//   - Pool fans fire-and-forget submissions out over N goroutines. Each
//     submission becomes a throwaway worker that runs exactly once; no
//     handle is returned, so pooled runs cannot be paused or resumed, only
//     cancelled through their context. The pool goroutine itself tears the
//     worker down after its finished event has been queued.
//
// Protocol misuse (adopting twice, operating with nothing adopted, using a
// halted dispatcher) is reported synchronously as an error to the caller;
// failures inside hooks never surface here; they travel to the owner as
// error events.
package dispatch
