package scraper

// State is a phase of one collection run.
type State int

const (
	StateIdle State = iota
	StateNavigating
	StateSettling
	StateLocating
	StateExtracting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateNavigating: "navigating",
	StateSettling:   "settling",
	StateLocating:   "locating",
	StateExtracting: "extracting",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// canTransition lists the allowed edges of the run state machine.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateNavigating || to == StateFailed
	case StateNavigating:
		return to == StateSettling || to == StateFailed
	case StateSettling:
		return to == StateLocating
	case StateLocating:
		return to == StateExtracting || to == StateFailed
	case StateExtracting:
		return to == StateDone
	}
	return false
}
