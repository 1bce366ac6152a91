package engine

// State is the sync worker's position in its session lifecycle.
type State int

const (
	StateInit State = iota
	StateLoggedOut
	StatePendingNewSession
	StateValidSession
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateLoggedOut:
		return "LoggedOut"
	case StatePendingNewSession:
		return "PendingNewSession"
	case StateValidSession:
		return "ValidSession"
	case StateSleeping:
		return "Sleeping"
	default:
		return "Unknown"
	}
}

// validTransitions is the complete set of legal (from, to) pairs, except
// that any state may additionally drop to LoggedOut.
var validTransitions = map[State]map[State]bool{
	StateInit:              {},
	StateLoggedOut:         {StateValidSession: true},
	StatePendingNewSession: {StateValidSession: true},
	StateValidSession:      {StateSleeping: true},
	StateSleeping:          {StatePendingNewSession: true},
}

// ValidTransition reports whether the FSM may move from one state to
// another. Nothing ever transitions back into Init.
func ValidTransition(from, to State) bool {
	if to == StateLoggedOut {
		return true
	}
	return validTransitions[from][to]
}
