package tailer

// State is the lifecycle of a Tailer.
type State int32

const (
	Unstarted State = iota
	Running
	OutOfSync // terminal
	Stopped
	Crashed // terminal, the polling loop panicked
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case OutOfSync:
		return "out-of-sync"
	case Stopped:
		return "stopped"
	case Crashed:
		return "crashed"
	default:
		return "*unknown*"
	}
}
