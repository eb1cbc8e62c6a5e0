package presence

// State is the publisher's connection state.
type State int

const (
	// StateActive: a connection exists and shows a track or nothing.
	StateActive State = iota
	// StateAwaitingClear: a clear was sent; waiting out the grace delay.
	StateAwaitingClear
	// StateReconnecting: the old connection is dropped and a new one opened.
	StateReconnecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateAwaitingClear:
		return "AwaitingClear"
	case StateReconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}

// StateChange is reported on every publisher transition.
type StateChange struct {
	Previous State
	Current  State
}
