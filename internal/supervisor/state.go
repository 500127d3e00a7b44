package supervisor

// State is the supervisor's lifecycle state machine:
//
//	Idle -> Starting -> Running -> Stopping -> Stopped
//
// Failed is terminal and reachable from Starting or Running when the
// backend exits without a stop having been requested.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == StateStopped || s == StateFailed
}
