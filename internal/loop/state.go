package loop

// State is a phase of the driver lifecycle.
type State int

const (
	Idle State = iota
	Running
	Interrupted
	Faulted
	Cleanup
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Interrupted:
		return "interrupted"
	case Faulted:
		return "faulted"
	case Cleanup:
		return "cleanup"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
