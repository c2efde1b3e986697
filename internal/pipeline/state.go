package pipeline

// State identifies where a pipeline run currently is.
type State int

const (
	StateIdle State = iota
	StateReducing
	StateExtractingText
	StateExplaining
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateReducing:       "reducing",
	StateExtractingText: "extracting_text",
	StateExplaining:     "explaining",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Busy reports whether the state represents an in-flight stage. Idle, Done
// and Failed are not busy.
func (s State) Busy() bool {
	switch s {
	case StateReducing, StateExtractingText, StateExplaining:
		return true
	default:
		return false
	}
}
