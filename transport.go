package wirekeep

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nhooyr.io/websocket"
)

// MessageKind distinguishes text and binary frames.
type MessageKind int

const (
	TextMessage MessageKind = iota + 1
	BinaryMessage
)

// Close codes shared with the WebSocket protocol.
const (
	StatusNormalClosure = 1000
	StatusGoingAway     = 1001
)

// writeTimeout bounds a single transport write so a dead peer cannot
// wedge the sender; liveness is the heartbeat monitor's job.
const writeTimeout = 10 * time.Second

// Conn is the minimal transport surface the engine drives. The engine
// is the only component holding a Conn.
type Conn interface {
	Read(ctx context.Context) (MessageKind, []byte, error)
	Write(ctx context.Context, kind MessageKind, data []byte) error
	Close(code int, reason string) error
}

// DialOptions carries per-dial transport settings.
type DialOptions struct {
	Protocols []string
}

// Dialer opens a transport connection. The default dialer speaks
// WebSocket; tests substitute an in-process fake.
type Dialer func(ctx context.Context, url string, opts DialOptions) (Conn, error)

// dialWebSocket is the default Dialer.
func dialWebSocket(ctx context.Context, url string, opts DialOptions) (Conn, error) {
	var dopts *websocket.DialOptions
	if len(opts.Protocols) > 0 {
		dopts = &websocket.DialOptions{Subprotocols: opts.Protocols}
	}
	ws, _, err := websocket.Dial(ctx, url, dopts)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

// wsConn adapts nhooyr.io/websocket to the Conn interface.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) (MessageKind, []byte, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		return 0, nil, err
	}
	if typ == websocket.MessageBinary {
		return BinaryMessage, data, nil
	}
	return TextMessage, data, nil
}

func (c *wsConn) Write(ctx context.Context, kind MessageKind, data []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, writeTimeout)
		defer cancel()
	}
	typ := websocket.MessageText
	if kind == BinaryMessage {
		typ = websocket.MessageBinary
	}
	return c.ws.Write(ctx, typ, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.ws.Close(websocket.StatusCode(code), reason)
}

// closeStatus extracts a close code and reason from a read error. The
// code is -1 when the transport failed without a close frame.
func closeStatus(err error) (int, string) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return int(ce.Code), ce.Reason
	}
	if err != nil {
		return -1, err.Error()
	}
	return -1, ""
}

// encodePayload serializes an outbound payload: strings and binary pass
// through as-is, everything else is JSON-encoded as text.
func encodePayload(payload any) (MessageKind, []byte, error) {
	switch v := payload.(type) {
	case string:
		return TextMessage, []byte(v), nil
	case []byte:
		return BinaryMessage, v, nil
	case json.RawMessage:
		return TextMessage, v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return 0, nil, WrapError(ErrSerialization, "cannot encode payload", err)
		}
		return TextMessage, data, nil
	}
}
