package api

// State represents the lifecycle state of a worker.
//
// State is owned by the worker instance and is mutated only from within its
// entry points (Start, Stop, Pause, Resume). Reading it from another
// goroutine goes through Worker.State, which uses the same lock.
type State string

const (
	// StateIdle means no run is in flight. It is the initial state and the
	// state a recyclable worker returns to between runs.
	StateIdle State = "IDLE"

	// StateWorking means the work hook is actively executing.
	StateWorking State = "WORKING"

	// StatePaused means the work hook has voluntarily suspended itself at a
	// checkpoint and is waiting to be resumed.
	StatePaused State = "PAUSED"

	// StateDeleted means the worker has been scheduled for teardown by its
	// dispatcher and must not be reused. Only workers owned by a dedicated
	// dispatcher ever reach this state.
	StateDeleted State = "DELETED"
)

var stateTransitions = map[State][]State{
	StateIdle:    {StateWorking, StateDeleted},
	StateWorking: {StatePaused, StateIdle},
	StatePaused:  {StateWorking, StateIdle},
	StateDeleted: {},
}

// CanTransition reports whether moving from src to dst is a legal worker
// state transition. Self-transitions are treated as legal no-ops.
func CanTransition(src, dst State) bool {
	if src == dst {
		return true
	}
	for _, s := range stateTransitions[src] {
		if s == dst {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s State) Terminal() bool {
	return len(stateTransitions[s]) == 0
}

func (s State) String() string {
	return string(s)
}
