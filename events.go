package wirekeep

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Built-in event names. Inbound payloads carrying a `type` field are
// additionally emitted under that type name, so application events share
// the namespace with these.
const (
	EventOpen              = "open"
	EventMessage           = "message"
	EventClose             = "close"
	EventError             = "error"
	EventReconnecting      = "reconnecting"
	EventReconnectFailed   = "reconnectFailed"
	EventHeartbeatTimeout  = "heartbeatTimeout"
	EventConnectionTimeout = "connectionTimeout"
	EventSendError         = "sendError"
	EventStatusChange      = "statusChange"
)

// Event pairs an event name with its payload.
type Event struct {
	Name string
	Data any
}

// Handler receives a published event.
type Handler func(Event)

// StatusChange is the payload of EventStatusChange.
type StatusChange struct {
	NewState     State
	OldState     State
	NewStateName string
	OldStateName string
}

// ReconnectingInfo is the payload of EventReconnecting.
type ReconnectingInfo struct {
	Attempt int
	Limit   int
	Delay   time.Duration
}

// ReconnectFailedInfo is the payload of EventReconnectFailed.
type ReconnectFailedInfo struct {
	Attempts int
	Limit    int
}

// CloseInfo is the payload of EventClose.
type CloseInfo struct {
	Code   int
	Reason string
}

// SendFailure is the payload of EventSendError.
type SendFailure struct {
	Payload any
	Err     error
}

// Subscription identifies one registered handler and can remove it.
type Subscription struct {
	emitter *Emitter
	event   string
	fn      Handler
	once    bool
	fired   atomic.Bool
}

// Off removes this subscription from its emitter.
func (s *Subscription) Off() {
	s.emitter.remove(s)
}

// Emitter is a named-channel publish/subscribe registry. Handlers for
// an event run in registration order; each engine owns one instance.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]*Subscription
	logger   Logger
}

func newEmitter(logger Logger) *Emitter {
	return &Emitter{
		handlers: make(map[string][]*Subscription),
		logger:   logger,
	}
}

// On appends fn to the handler list for event. Registering the same
// function twice yields two independent subscriptions.
func (e *Emitter) On(event string, fn Handler) *Subscription {
	sub := &Subscription{emitter: e, event: event, fn: fn}
	e.mu.Lock()
	e.handlers[event] = append(e.handlers[event], sub)
	e.mu.Unlock()
	return sub
}

// Once registers fn to run at most one time, even when the event is
// emitted repeatedly in the same dispatch turn.
func (e *Emitter) Once(event string, fn Handler) *Subscription {
	sub := &Subscription{emitter: e, event: event, fn: fn, once: true}
	e.mu.Lock()
	e.handlers[event] = append(e.handlers[event], sub)
	e.mu.Unlock()
	return sub
}

// Off removes every handler registered for event.
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	delete(e.handlers, event)
	e.mu.Unlock()
}

func (e *Emitter) remove(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.handlers[sub.event]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		// Last handler gone: drop the key so HasListeners sees absence.
		delete(e.handlers, sub.event)
		return
	}
	e.handlers[sub.event] = subs
}

// Emit invokes every current handler for event in registration order.
// A panicking handler is recovered and logged; the remaining handlers
// still run and the panic never reaches the caller.
func (e *Emitter) Emit(event string, data any) {
	e.mu.Lock()
	subs := make([]*Subscription, len(e.handlers[event]))
	copy(subs, e.handlers[event])
	e.mu.Unlock()

	ev := Event{Name: event, Data: data}
	for _, sub := range subs {
		if sub.once {
			if !sub.fired.CompareAndSwap(false, true) {
				continue
			}
			e.remove(sub)
		}
		e.invoke(sub, ev)
	}
}

func (e *Emitter) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", map[string]any{
				"event": ev.Name, "panic": r,
			})
		}
	}()
	sub.fn(ev)
}

// HasListeners reports whether any handler is registered for event.
func (e *Emitter) HasListeners(event string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event]) > 0
}

// EventNames returns the sorted list of events with registered handlers.
func (e *Emitter) EventNames() []string {
	e.mu.Lock()
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	e.mu.Unlock()
	sort.Strings(names)
	return names
}

// Clear removes every handler for every event.
func (e *Emitter) Clear() {
	e.mu.Lock()
	e.handlers = make(map[string][]*Subscription)
	e.mu.Unlock()
}
