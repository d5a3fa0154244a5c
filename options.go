package wirekeep

import "time"

// Options controls session behavior. Durations of zero fall back to
// the defaults below; explicit zeroes for the reconnect limit mean no
// ceiling.
type Options struct {
	// URL is the endpoint to dial. Required.
	URL string

	// Protocols lists WebSocket subprotocols offered during the handshake.
	Protocols []string

	// ReconnectLimit caps consecutive automatic reconnect attempts.
	ReconnectLimit int

	// ReconnectInterval is the base delay before the first retry.
	ReconnectInterval time.Duration

	// MaxReconnectDelay caps the backed-off retry delay.
	MaxReconnectDelay time.Duration

	// HeartbeatInterval is the period between pings while open.
	HeartbeatInterval time.Duration

	// HeartbeatTimeout is how long to wait for a pong after each ping.
	HeartbeatTimeout time.Duration

	// ConnectionTimeout bounds the handshake window of one attempt.
	ConnectionTimeout time.Duration

	// AutoReconnect re-dials after unexpected closures.
	AutoReconnect bool

	// AutoParseMessage decodes inbound frames as JSON, best effort.
	AutoParseMessage bool

	// RetryOnError treats a transport error during the handshake as a
	// connection failure, entering the reconnect path.
	RetryOnError bool

	// PingMessage is the heartbeat probe. A structured template is sent
	// with a fresh timestamp field merged in.
	PingMessage any

	// PongMessage is the template inbound payloads are matched against
	// to confirm liveness.
	PongMessage any
}

const (
	DefaultReconnectLimit    = 5
	DefaultReconnectInterval = 5 * time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 5 * time.Second
	DefaultConnectionTimeout = 10 * time.Second
)

func defaultOptions(url string) Options {
	return Options{
		URL:               url,
		ReconnectLimit:    DefaultReconnectLimit,
		ReconnectInterval: DefaultReconnectInterval,
		MaxReconnectDelay: DefaultMaxReconnectDelay,
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		ConnectionTimeout: DefaultConnectionTimeout,
		AutoReconnect:     true,
		AutoParseMessage:  true,
		RetryOnError:      true,
		PingMessage:       map[string]any{"type": "ping"},
		PongMessage:       map[string]any{"type": "pong"},
	}
}

// Option mutates a Client during construction or through SetOptions.
type Option func(*Client)

// WithURL changes the endpoint. Applied through SetOptions while the
// session is open, it forces a reconnect with the retry budget reset.
func WithURL(url string) Option {
	return func(c *Client) { c.opts.URL = url }
}

func WithProtocols(protocols ...string) Option {
	return func(c *Client) { c.opts.Protocols = protocols }
}

func WithReconnectLimit(limit int) Option {
	return func(c *Client) { c.opts.ReconnectLimit = limit }
}

func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) { c.opts.ReconnectInterval = d }
}

func WithMaxReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.opts.MaxReconnectDelay = d }
}

// WithHeartbeat sets the ping interval and the pong timeout. Applied
// through SetOptions while open, the heartbeat restarts on the new
// schedule. An interval of zero disables the heartbeat.
func WithHeartbeat(interval, timeout time.Duration) Option {
	return func(c *Client) {
		c.opts.HeartbeatInterval = interval
		c.opts.HeartbeatTimeout = timeout
	}
}

func WithConnectionTimeout(d time.Duration) Option {
	return func(c *Client) { c.opts.ConnectionTimeout = d }
}

func WithAutoReconnect(enabled bool) Option {
	return func(c *Client) { c.opts.AutoReconnect = enabled }
}

func WithAutoParseMessage(enabled bool) Option {
	return func(c *Client) { c.opts.AutoParseMessage = enabled }
}

func WithRetryOnError(enabled bool) Option {
	return func(c *Client) { c.opts.RetryOnError = enabled }
}

func WithPingMessage(payload any) Option {
	return func(c *Client) { c.opts.PingMessage = payload }
}

func WithPongMessage(template any) Option {
	return func(c *Client) { c.opts.PongMessage = template }
}

// WithLogger sets the logger. Only effective at construction; the
// sub-components capture it.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer substitutes the transport dialer. Only effective at
// construction.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}
