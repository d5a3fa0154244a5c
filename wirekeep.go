// Package wirekeep keeps a logical session alive over a single
// WebSocket connection. It reconnects with capped exponential backoff,
// detects silent failures with a ping/pong heartbeat, buffers outbound
// payloads while the transport is down, and surfaces every lifecycle
// change through a small event interface.
//
// Example:
//
//	client := wirekeep.New("wss://example.com/socket",
//		wirekeep.WithReconnectLimit(10),
//		wirekeep.WithHeartbeat(15*time.Second, 5*time.Second),
//	)
//
//	client.On(wirekeep.EventMessage, func(ev wirekeep.Event) {
//		fmt.Println("message:", ev.Data)
//	})
//	client.On("chat", func(ev wirekeep.Event) {
//		// payloads with {"type":"chat"} also fan out here
//	})
//
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	_ = client.Send(map[string]any{"type": "chat", "msg": "hi"})
package wirekeep

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Client is the connection lifecycle engine. It owns the transport
// handle exclusively and drives the session state, the heartbeat
// monitor, the outbound queue, and the reconnection controller.
type Client struct {
	logger Logger
	dialer Dialer

	status *status
	events *Emitter
	queue  *sendQueue
	recon  *reconnector
	hb     *heartbeat

	mu            sync.Mutex
	opts          Options
	conn          Conn
	gen           int // fences stale dial results, read loops and timers
	dialCancel    context.CancelFunc
	explicitClose bool
	destroyed     bool
	lastMessageAt time.Time
}

// New constructs a client for the given endpoint. The client starts
// Closed; call Connect to establish the session.
func New(url string, opts ...Option) *Client {
	c := &Client{
		logger: noopLogger{},
		dialer: dialWebSocket,
		queue:  &sendQueue{},
		recon:  &reconnector{},
		opts:   defaultOptions(url),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.status = newStatus(Closed, c.logger)
	c.events = newEmitter(c.logger)
	c.hb = &heartbeat{
		sendPing:  c.sendHeartbeatPing,
		onTimeout: c.onHeartbeatTimeout,
		logger:    c.logger,
		interval:  c.opts.HeartbeatInterval,
		timeout:   c.opts.HeartbeatTimeout,
	}
	c.status.observe(func(newState, oldState State) {
		c.events.Emit(EventStatusChange, StatusChange{
			NewState:     newState,
			OldState:     oldState,
			NewStateName: newState.String(),
			OldStateName: oldState.String(),
		})
	})
	return c
}

// ============================================================================
// Event registration
// ============================================================================

// On registers a handler for the named event.
func (c *Client) On(event string, fn Handler) *Subscription {
	return c.events.On(event, fn)
}

// Once registers a handler that fires at most one time.
func (c *Client) Once(event string, fn Handler) *Subscription {
	return c.events.Once(event, fn)
}

// Off removes every handler for the named event.
func (c *Client) Off(event string) {
	c.events.Off(event)
}

// HasListeners reports whether any handler is registered for event.
func (c *Client) HasListeners(event string) bool {
	return c.events.HasListeners(event)
}

// EventNames returns every event with at least one handler.
func (c *Client) EventNames() []string {
	return c.events.EventNames()
}

// OnStatusChange registers a session state observer.
func (c *Client) OnStatusChange(fn func(newState, oldState State)) {
	c.status.observe(fn)
}

// ============================================================================
// Lifecycle operations
// ============================================================================

// Connect establishes a new transport session. It never blocks on the
// network; the outcome arrives through events (open, error,
// connectionTimeout). A prior in-flight or open transport is superseded
// and force-closed.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return NewError(ErrDestroyed, "client destroyed")
	}
	if c.opts.URL == "" {
		c.mu.Unlock()
		return NewError(ErrInvalidConfig, "empty URL")
	}
	c.explicitClose = false
	c.gen++
	gen := c.gen
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	old := c.conn
	c.conn = nil
	url := c.opts.URL
	protocols := append([]string(nil), c.opts.Protocols...)
	timeout := c.opts.ConnectionTimeout
	c.mu.Unlock()

	if old != nil {
		// Abandoned transports are force-closed, never orphaned.
		_ = old.Close(StatusGoingAway, "superseded")
	}
	c.hb.stop()
	c.status.set(Connecting)
	go c.dial(gen, url, protocols, timeout)
	return nil
}

// Close requests a graceful shutdown and suppresses auto-reconnect
// until the next Connect or Reconnect call.
func (c *Client) Close(code int, reason string) error {
	c.mu.Lock()
	c.explicitClose = true
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.recon.cancel()
	var err error
	if conn != nil {
		c.status.set(Closing)
		c.hb.stop()
		err = conn.Close(code, reason)
	}
	c.hb.stop()
	c.status.set(Closed)
	return err
}

// Reconnect force-closes any existing transport and dials again.
// resetCount restarts the retry budget and the backoff from zero.
func (c *Client) Reconnect(resetCount bool) error {
	c.recon.cancel()
	if resetCount {
		c.recon.reset()
	}
	return c.Connect()
}

// CheckConnection nudges a silently dead session: when the state is
// Closed, the close was not requested, and auto-reconnect is enabled,
// a reconnect attempt is scheduled. The current state is returned.
func (c *Client) CheckConnection() State {
	st := c.status.get()
	if st == Closed {
		c.scheduleReconnect()
	}
	return st
}

// Destroy tears the engine down: transport closed, timers stopped,
// handlers and queue cleared. The client cannot be reused.
func (c *Client) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.explicitClose = true
	c.gen++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.recon.cancel()
	c.hb.stop()
	if conn != nil {
		_ = conn.Close(StatusGoingAway, "destroyed")
	}
	c.status.set(Closed)
	c.events.Clear()
	c.queue.clear()
}

// Send transmits payload when the session is open, queues it while a
// connection attempt is pending, and rejects it when the session is
// closed or closing. Strings and []byte pass through unencoded;
// anything else is JSON-encoded.
func (c *Client) Send(payload any) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return NewError(ErrDestroyed, "client destroyed")
	}
	conn := c.conn
	c.mu.Unlock()

	switch st := c.status.get(); st {
	case Open:
		if conn == nil {
			return c.rejectSend(payload, NewError(ErrSend, "no transport"))
		}
		kind, data, err := encodePayload(payload)
		if err != nil {
			return c.rejectSend(payload, err)
		}
		if err := conn.Write(context.Background(), kind, data); err != nil {
			return c.rejectSend(payload, WrapError(ErrSend, "transport write failed", err))
		}
		return nil
	case Connecting, Reconnecting:
		// Accepted but not yet sent; flushed in order on open.
		c.queue.enqueue(payload)
		return nil
	default:
		return c.rejectSend(payload, NewError(ErrSend, "session is "+st.String()))
	}
}

func (c *Client) rejectSend(payload any, err error) error {
	c.events.Emit(EventSendError, SendFailure{Payload: payload, Err: err})
	return err
}

// ============================================================================
// Runtime configuration
// ============================================================================

// SetOptions merges option changes into the live session. Changing the
// URL while open forces a reconnect with the retry budget reset;
// changing the heartbeat schedule while open restarts the heartbeat.
func (c *Client) SetOptions(opts ...Option) {
	c.mu.Lock()
	prev := c.opts
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	cur := c.opts
	c.mu.Unlock()

	st := c.status.get()
	if cur.URL != prev.URL && st == Open {
		_ = c.Reconnect(true)
		return
	}
	if st == Open &&
		(cur.HeartbeatInterval != prev.HeartbeatInterval || cur.HeartbeatTimeout != prev.HeartbeatTimeout) {
		c.hb.setSchedule(cur.HeartbeatInterval, cur.HeartbeatTimeout)
		// The session is open, so the new schedule takes effect even if
		// the monitor was previously disabled.
		c.hb.start()
	}
}

// SetAutoReconnect toggles automatic reconnection.
func (c *Client) SetAutoReconnect(enabled bool) {
	c.mu.Lock()
	c.opts.AutoReconnect = enabled
	c.mu.Unlock()
}

// Options returns a copy of the current options.
func (c *Client) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := c.opts
	opts.Protocols = append([]string(nil), c.opts.Protocols...)
	return opts
}

// State returns the current session state.
func (c *Client) State() State {
	return c.status.get()
}

// LastMessageAt reports when the last inbound payload (pongs included)
// arrived. Zero until the first message.
func (c *Client) LastMessageAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMessageAt
}

// QueuedCount reports how many payloads await the next open transport.
func (c *Client) QueuedCount() int {
	return c.queue.len()
}

// ============================================================================
// Transport lifecycle
// ============================================================================

func (c *Client) dial(gen int, url string, protocols []string, timeout time.Duration) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.mu.Lock()
	if gen != c.gen || c.destroyed || c.explicitClose {
		c.mu.Unlock()
		return
	}
	c.dialCancel = cancel
	dialer := c.dialer
	c.mu.Unlock()

	conn, err := dialer(ctx, url, DialOptions{Protocols: protocols})
	timedOut := ctx.Err() == context.DeadlineExceeded

	c.mu.Lock()
	if gen == c.gen {
		c.dialCancel = nil
	}
	// A dial abandoned by Close is stale too: the caller asked for a
	// clean shutdown, so its cancellation is not an error worth telling.
	stale := gen != c.gen || c.destroyed || c.explicitClose
	retry := c.opts.RetryOnError
	c.mu.Unlock()

	if err != nil {
		if stale {
			return
		}
		if timedOut {
			// The handshake window expired with the transport half-open.
			c.events.Emit(EventConnectionTimeout,
				WrapError(ErrConnectionTimeout, "connection attempt timed out", err))
			c.settleConnectFailure(gen, true)
			return
		}
		c.events.Emit(EventError, WrapError(ErrInit, "transport dial failed", err))
		c.settleConnectFailure(gen, retry)
		return
	}
	if stale {
		_ = conn.Close(StatusGoingAway, "abandoned")
		return
	}
	c.handleOpen(gen, conn)
}

// settleConnectFailure moves a failed attempt to Closed and, when
// permitted, hands off to the reconnection controller.
func (c *Client) settleConnectFailure(gen int, allowReconnect bool) {
	c.mu.Lock()
	if gen != c.gen || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.status.set(Closed)
	if allowReconnect {
		c.scheduleReconnect()
	}
}

func (c *Client) handleOpen(gen int, conn Conn) {
	c.mu.Lock()
	if gen != c.gen || c.destroyed || c.explicitClose {
		c.mu.Unlock()
		_ = conn.Close(StatusGoingAway, "abandoned")
		return
	}
	c.conn = conn
	interval := c.opts.HeartbeatInterval
	timeout := c.opts.HeartbeatTimeout
	c.mu.Unlock()

	c.recon.cancel()
	c.recon.reset()
	c.status.set(Open)
	// Queue drain happens before the heartbeat starts, which happens
	// before the open event, so open observers see a flushed queue and
	// an armed heartbeat.
	if n := c.queue.drain(func(p any) error { return c.writeTo(conn, p) }); n > 0 {
		c.logger.Debug("flushed queued payloads", map[string]any{"count": n})
	}
	c.hb.setSchedule(interval, timeout)
	c.hb.start()
	c.events.Emit(EventOpen, nil)
	go c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen int, conn Conn) {
	for {
		kind, data, err := conn.Read(context.Background())
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		c.handleMessage(gen, kind, data)
	}
}

func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen || c.destroyed {
		// A newer attempt owns the session; this transport was abandoned.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	explicit := c.explicitClose
	auto := c.opts.AutoReconnect
	c.mu.Unlock()

	c.status.set(Closed)
	c.hb.stop()
	code, reason := closeStatus(err)
	c.events.Emit(EventClose, CloseInfo{Code: code, Reason: reason})
	if !explicit && auto {
		c.scheduleReconnect()
	}
}

func (c *Client) handleMessage(gen int, kind MessageKind, data []byte) {
	c.mu.Lock()
	if gen != c.gen || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.lastMessageAt = time.Now()
	autoParse := c.opts.AutoParseMessage
	pongTemplate := c.opts.PongMessage
	c.mu.Unlock()

	var payload any
	if kind == BinaryMessage {
		payload = data
	} else {
		payload = string(data)
	}
	if autoParse {
		var decoded any
		if json.Unmarshal(data, &decoded) == nil {
			payload = decoded
		}
		// Decode failures are not fatal; the raw payload passes through.
	}

	if matchesPong(payload, pongTemplate) {
		c.hb.pongSeen()
		return
	}

	c.events.Emit(EventMessage, payload)
	if m, ok := payload.(map[string]any); ok {
		// Dynamic fan-out under the payload's own type name. A type that
		// collides with a built-in event name is emitted unchanged.
		if typ, ok := m["type"].(string); ok && typ != "" {
			c.events.Emit(typ, payload)
		}
	}
}

// ============================================================================
// Reconnection
// ============================================================================

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.destroyed || c.explicitClose || !c.opts.AutoReconnect {
		c.mu.Unlock()
		return
	}
	limit := c.opts.ReconnectLimit
	base := c.opts.ReconnectInterval
	max := c.opts.MaxReconnectDelay
	c.mu.Unlock()

	attempt, ok := c.recon.begin(limit)
	if !ok {
		c.logger.Warn("reconnect budget exhausted", map[string]any{
			"attempts": attempt, "limit": limit,
		})
		c.events.Emit(EventReconnectFailed, ReconnectFailedInfo{Attempts: attempt, Limit: limit})
		return
	}

	c.status.set(Reconnecting)
	delay := c.recon.nextDelay(base, max)
	c.events.Emit(EventReconnecting, ReconnectingInfo{Attempt: attempt, Limit: limit, Delay: delay})
	c.recon.schedule(delay, func() {
		if err := c.Connect(); err != nil {
			c.logger.Warn("reconnect attempt could not start", map[string]any{"error": err.Error()})
		}
	})
}

// ============================================================================
// Heartbeat
// ============================================================================

// sendHeartbeatPing transmits the configured ping payload. A structured
// template is sent with a fresh millisecond timestamp merged in.
func (c *Client) sendHeartbeatPing() error {
	c.mu.Lock()
	conn := c.conn
	ping := c.opts.PingMessage
	c.mu.Unlock()

	if conn == nil {
		return NewError(ErrSend, "no transport for ping")
	}
	payload := ping
	if template, ok := ping.(map[string]any); ok {
		merged := make(map[string]any, len(template)+1)
		for k, v := range template {
			merged[k] = v
		}
		merged["timestamp"] = time.Now().UnixMilli()
		payload = merged
	}
	return c.writeTo(conn, payload)
}

// onHeartbeatTimeout handles a liveness failure: the event is
// published, the transport is force-closed, and the read loop observes
// the closure and drives reconnection.
func (c *Client) onHeartbeatTimeout() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	c.logger.Warn("heartbeat timed out", nil)
	c.events.Emit(EventHeartbeatTimeout, NewError(ErrHeartbeatTimeout, "no pong within timeout"))
	if conn != nil {
		_ = conn.Close(StatusGoingAway, "heartbeat timeout")
	}
}

func (c *Client) writeTo(conn Conn, payload any) error {
	kind, data, err := encodePayload(payload)
	if err != nil {
		c.logger.Warn("dropping unencodable payload", map[string]any{"error": err.Error()})
		return err
	}
	if err := conn.Write(context.Background(), kind, data); err != nil {
		c.logger.Warn("transport write failed", map[string]any{"error": err.Error()})
		return WrapError(ErrSend, "transport write failed", err)
	}
	return nil
}
