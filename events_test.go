package wirekeep

import (
	"reflect"
	"testing"
)

func TestEmitterOrderAndDuplicates(t *testing.T) {
	e := newEmitter(noopLogger{})
	var got []string
	add := func(tag string) Handler {
		return func(ev Event) { got = append(got, tag) }
	}
	e.On("msg", add("a"))
	e.On("msg", add("b"))
	e.On("msg", add("a2")) // same shape, independent subscription
	e.Emit("msg", nil)

	want := []string{"a", "b", "a2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("invocation order = %v, want %v", got, want)
	}
}

func TestEmitterPanicIsolation(t *testing.T) {
	e := newEmitter(noopLogger{})
	var after bool
	e.On("boom", func(Event) { panic("handler exploded") })
	e.On("boom", func(Event) { after = true })

	e.Emit("boom", nil) // must not panic the caller
	if !after {
		t.Fatal("handler after the panicking one did not run")
	}
}

func TestEmitterOnceSingleFire(t *testing.T) {
	e := newEmitter(noopLogger{})
	count := 0
	e.Once("tick", func(Event) { count++ })

	e.Emit("tick", nil)
	e.Emit("tick", nil)
	if count != 1 {
		t.Fatalf("once handler ran %d times, want 1", count)
	}
	if e.HasListeners("tick") {
		t.Fatal("once handler still registered after firing")
	}
}

func TestEmitterOnceReentrantEmit(t *testing.T) {
	e := newEmitter(noopLogger{})
	count := 0
	e.Once("tick", func(Event) {
		count++
		if count == 1 {
			e.Emit("tick", nil) // synchronous re-publish in the same turn
		}
	})
	e.Emit("tick", nil)
	if count != 1 {
		t.Fatalf("once handler ran %d times under re-entrant emit, want 1", count)
	}
}

func TestEmitterOffSemantics(t *testing.T) {
	e := newEmitter(noopLogger{})
	var a, b int
	subA := e.On("ev", func(Event) { a++ })
	e.On("ev", func(Event) { b++ })

	subA.Off()
	e.Emit("ev", nil)
	if a != 0 || b != 1 {
		t.Fatalf("after subscription removal: a=%d b=%d, want 0 and 1", a, b)
	}

	e.Off("ev")
	e.Emit("ev", nil)
	if b != 1 {
		t.Fatal("Off(event) did not remove remaining handlers")
	}
	if e.HasListeners("ev") {
		t.Fatal("event key survived removal of its last handler")
	}
}

func TestEmitterEventNamesAndClear(t *testing.T) {
	e := newEmitter(noopLogger{})
	e.On("b", func(Event) {})
	e.On("a", func(Event) {})

	names := e.EventNames()
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Fatalf("EventNames = %v", names)
	}

	e.Clear()
	if len(e.EventNames()) != 0 {
		t.Fatal("Clear left handlers behind")
	}
}

func TestEmitterPayloadDelivery(t *testing.T) {
	e := newEmitter(noopLogger{})
	var got Event
	e.On("data", func(ev Event) { got = ev })
	e.Emit("data", 42)
	if got.Name != "data" || got.Data != 42 {
		t.Fatalf("got event %+v", got)
	}
}
