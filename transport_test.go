package wirekeep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// newEchoServer starts a WebSocket server that echoes every frame.
func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close(websocket.StatusInternalError, "server shutdown")
		ctx := r.Context()
		for {
			typ, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			if err := ws.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialWebSocketRoundTrip(t *testing.T) {
	_, url := newEchoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := dialWebSocket(ctx, url, DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(StatusNormalClosure, "done")

	if err := conn.Write(ctx, TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	kind, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != TextMessage || string(data) != "hello" {
		t.Fatalf("echo = kind %v, %q", kind, data)
	}

	if err := conn.Write(ctx, BinaryMessage, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("binary write: %v", err)
	}
	kind, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("binary read: %v", err)
	}
	if kind != BinaryMessage || !bytes.Equal(data, []byte{0x01, 0x02}) {
		t.Fatalf("binary echo = kind %v, %v", kind, data)
	}
}

func TestClientOverLiveWebSocket(t *testing.T) {
	_, url := newEchoServer(t)
	c := New(url,
		WithHeartbeat(0, 0),
		WithAutoReconnect(false),
		WithConnectionTimeout(5*time.Second),
	)
	defer c.Destroy()
	messages := collectEvents(c, EventMessage)
	echoes := collectEvents(c, "echo")

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitState(t, c, Open)

	if err := c.Send(map[string]any{"type": "echo", "n": 7}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ev := waitEvent(t, messages, "echoed message")
	payload := ev.Data.(map[string]any)
	if payload["type"] != "echo" || payload["n"] != float64(7) {
		t.Fatalf("echo payload = %v", payload)
	}
	waitEvent(t, echoes, "typed echo event")

	if err := c.Close(StatusNormalClosure, "done"); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseStatus(t *testing.T) {
	code, reason := closeStatus(websocket.CloseError{
		Code: websocket.StatusNormalClosure, Reason: "bye",
	})
	if code != 1000 || reason != "bye" {
		t.Fatalf("close frame status = (%d, %q)", code, reason)
	}

	code, reason = closeStatus(errors.New("broken pipe"))
	if code != -1 || reason != "broken pipe" {
		t.Fatalf("plain error status = (%d, %q)", code, reason)
	}

	if code, _ = closeStatus(nil); code != -1 {
		t.Fatalf("nil error code = %d", code)
	}
}

func TestEncodePayload(t *testing.T) {
	kind, data, err := encodePayload("plain")
	if err != nil || kind != TextMessage || string(data) != "plain" {
		t.Fatalf("string: kind=%v data=%q err=%v", kind, data, err)
	}

	kind, data, err = encodePayload([]byte{0xFF})
	if err != nil || kind != BinaryMessage || !bytes.Equal(data, []byte{0xFF}) {
		t.Fatalf("bytes: kind=%v data=%v err=%v", kind, data, err)
	}

	raw := json.RawMessage(`{"pre":"encoded"}`)
	kind, data, err = encodePayload(raw)
	if err != nil || kind != TextMessage || string(data) != `{"pre":"encoded"}` {
		t.Fatalf("raw message: kind=%v data=%q err=%v", kind, data, err)
	}

	kind, data, err = encodePayload(map[string]any{"a": 1})
	if err != nil || kind != TextMessage {
		t.Fatalf("map: kind=%v err=%v", kind, err)
	}
	var decoded map[string]any
	if json.Unmarshal(data, &decoded) != nil || decoded["a"] != float64(1) {
		t.Fatalf("map encoding = %q", data)
	}

	if _, _, err = encodePayload(make(chan int)); CodeOf(err) != ErrSerialization {
		t.Fatalf("unencodable payload: %v", err)
	}
}
