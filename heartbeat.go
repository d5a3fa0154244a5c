package wirekeep

import (
	"reflect"
	"sync"
	"time"
)

// pongType is the sentinel matched when no pong template is configured.
const pongType = "pong"

// heartbeat probes the peer at a fixed interval while the session is
// open and watches for a matching pong. Each ping arms a one-shot
// timeout; a pong disarms it without disturbing the interval. When the
// timeout fires, onTimeout is called once and the monitor tears itself
// down.
type heartbeat struct {
	sendPing  func() error
	onTimeout func()
	logger    Logger

	mu        sync.Mutex
	interval  time.Duration
	timeout   time.Duration
	gen       int
	running   bool
	intervalT *time.Timer
	timeoutT  *time.Timer
}

// setSchedule updates the interval and timeout. A running monitor is
// restarted so the new interval takes effect immediately.
func (h *heartbeat) setSchedule(interval, timeout time.Duration) {
	h.mu.Lock()
	h.interval = interval
	h.timeout = timeout
	restart := h.running
	h.mu.Unlock()
	if restart {
		h.start()
	}
}

// start begins probing. Any previous schedule is superseded.
func (h *heartbeat) start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	if h.interval <= 0 {
		return
	}
	h.running = true
	gen := h.gen
	h.intervalT = time.AfterFunc(h.interval, func() { h.tick(gen) })
}

// stop tears down both timers.
func (h *heartbeat) stop() {
	h.mu.Lock()
	h.stopLocked()
	h.mu.Unlock()
}

func (h *heartbeat) stopLocked() {
	h.gen++
	h.running = false
	if h.intervalT != nil {
		h.intervalT.Stop()
		h.intervalT = nil
	}
	if h.timeoutT != nil {
		h.timeoutT.Stop()
		h.timeoutT = nil
	}
}

// pongSeen disarms the pending timeout. The interval keeps running.
func (h *heartbeat) pongSeen() {
	h.mu.Lock()
	if h.timeoutT != nil {
		h.timeoutT.Stop()
		h.timeoutT = nil
	}
	h.mu.Unlock()
}

func (h *heartbeat) tick(gen int) {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	// The watchdog is armed before the ping leaves, so a pong answered
	// in zero time still finds a timer to disarm. At most one timeout
	// is armed at a time.
	if h.timeoutT != nil {
		h.timeoutT.Stop()
	}
	h.timeoutT = time.AfterFunc(h.timeout, func() { h.expired(gen) })
	h.intervalT = time.AfterFunc(h.interval, func() { h.tick(gen) })
	h.mu.Unlock()

	if err := h.sendPing(); err != nil {
		h.logger.Warn("heartbeat ping failed", map[string]any{"error": err.Error()})
	}
}

func (h *heartbeat) expired(gen int) {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	h.stopLocked()
	h.mu.Unlock()
	h.onTimeout()
}

// matchesPong reports whether payload satisfies the configured pong
// template. With a structured template, every template key must be
// present and equal in the payload; extra payload keys are ignored.
// With no template, any object whose type field equals "pong" matches.
// A non-map template matches on plain equality.
func matchesPong(payload, template any) bool {
	if template == nil {
		m, ok := payload.(map[string]any)
		if !ok {
			return false
		}
		typ, _ := m["type"].(string)
		return typ == pongType
	}
	if tm, ok := template.(map[string]any); ok {
		pm, ok := payload.(map[string]any)
		if !ok {
			return false
		}
		for k, want := range tm {
			got, present := pm[k]
			if !present || !valueEqual(got, want) {
				return false
			}
		}
		return true
	}
	return valueEqual(payload, template)
}

// valueEqual compares loosely enough to survive the JSON round trip,
// where every number decodes as float64.
func valueEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
