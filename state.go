package wirekeep

import "sync"

// State is the lifecycle state of a session. The numeric values of the
// first four states follow the WebSocket readyState convention.
type State int

const (
	// Connecting means a transport handshake is in flight.
	Connecting State = iota

	// Open means the transport is established and writable.
	Open

	// Closing means a graceful shutdown was requested.
	Closing

	// Closed means no transport exists. Closed is a valid resting state;
	// a closed client can be connected again.
	Closed

	// Reconnecting means an automatic connection attempt is scheduled.
	Reconnecting
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// status holds the current session state and notifies observers on each
// transition. Transitions happen only through the engine.
type status struct {
	mu        sync.Mutex
	current   State
	observers []func(newState, oldState State)
	logger    Logger
}

func newStatus(initial State, logger Logger) *status {
	return &status{current: initial, logger: logger}
}

// get returns the current state.
func (s *status) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// observe registers fn to run on every transition, in registration order.
func (s *status) observe(fn func(newState, oldState State)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// set swaps the state and notifies every observer with the (new, old)
// pair before returning. Setting the current state again is a no-op, so
// observers never see a duplicate transition. A panicking observer is
// logged and does not stop the remaining observers.
func (s *status) set(newState State) {
	s.mu.Lock()
	if s.current == newState {
		s.mu.Unlock()
		return
	}
	oldState := s.current
	s.current = newState
	observers := make([]func(State, State), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		s.notify(fn, newState, oldState)
	}
}

func (s *status) notify(fn func(State, State), newState, oldState State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state observer panicked", map[string]any{
				"panic": r, "newState": newState.String(), "oldState": oldState.String(),
			})
		}
	}()
	fn(newState, oldState)
}
