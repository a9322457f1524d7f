package workflow

// State represents an expense lifecycle state. The values are the French
// accounting labels stored on the expense records themselves.
type State string

const (
	StateUnaccounted State = "Sans compte"
	StateAccounted   State = "Comptabilisé"
	StateConfirmed   State = "Confirmé"
	StatePaid        State = "Payé"
)

var validStates = map[State]bool{
	StateUnaccounted: true,
	StateAccounted:   true,
	StateConfirmed:   true,
	StatePaid:        true,
}

var terminalStates = map[State]bool{
	StatePaid: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
