package wirekeep

import "testing"

func TestStatusNotifiesOnTransition(t *testing.T) {
	s := newStatus(Closed, noopLogger{})
	var newSt, oldSt State
	calls := 0
	s.observe(func(n, o State) { newSt, oldSt = n, o; calls++ })

	s.set(Connecting)
	if calls != 1 || newSt != Connecting || oldSt != Closed {
		t.Fatalf("calls=%d new=%v old=%v", calls, newSt, oldSt)
	}
	if s.get() != Connecting {
		t.Fatalf("get() = %v", s.get())
	}
}

func TestStatusSameStateIsNoOp(t *testing.T) {
	s := newStatus(Open, noopLogger{})
	calls := 0
	s.observe(func(State, State) { calls++ })

	s.set(Open)
	s.set(Open)
	if calls != 0 {
		t.Fatalf("same-state set notified %d times, want 0", calls)
	}
}

func TestStatusObserverPanicIsolated(t *testing.T) {
	s := newStatus(Closed, noopLogger{})
	var second bool
	s.observe(func(State, State) { panic("observer exploded") })
	s.observe(func(State, State) { second = true })

	s.set(Connecting)
	if !second {
		t.Fatal("observer after the panicking one did not run")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Connecting:   "connecting",
		Open:         "open",
		Closing:      "closing",
		Closed:       "closed",
		Reconnecting: "reconnecting",
		State(99):    "unknown",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(st), st.String(), want)
		}
	}
}
