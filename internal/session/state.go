package session

// State describes where the active screen sits in the room lifecycle.
//
// IDLE -> LOADING on room selection (history fetch and handshake fire
// concurrently), LOADING -> OPEN once the connection is established,
// OPEN -> CLOSED on room switch, error or teardown, CLOSED -> LOADING
// when the next room is selected.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
