package debugger

// EventKind tags the Event handed from the execution goroutine to the control
// goroutine.
type EventKind int

const (
	EventStart EventKind = iota
	EventStep
	EventBreak
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStep:
		return "step"
	case EventBreak:
		return "break"
	case EventStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the control goroutine. Which payload field is
// set depends on Kind: Program for EventStart, Snapshot for EventStep and
// EventBreak, Result for EventStop.
type Event struct {
	Kind     EventKind
	Program  any
	Snapshot *Snapshot
	Result   any
}
