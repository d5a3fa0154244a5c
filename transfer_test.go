package wirekeep

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func transferFrames(t *testing.T, conn *fakeConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, text := range conn.writtenText() {
		var m map[string]any
		if err := json.Unmarshal([]byte(text), &m); err != nil {
			t.Fatalf("non-JSON transfer frame %q: %v", text, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSendFileChunkSequence(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d)
	defer c.Destroy()
	c.Connect()
	waitState(t, c, Open)
	conn := d.waitConn(t, 1)

	payload := bytes.Repeat([]byte("wirekeep"), 100) // 800 bytes
	var progress []int64
	id, err := c.SendFile(context.Background(), "notes.md", int64(len(payload)),
		bytes.NewReader(payload), &FileTransferOptions{
			ChunkSize:  300,
			OnProgress: func(sent, _ int64) { progress = append(progress, sent) },
		})
	if err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	if id == "" {
		t.Fatal("empty transfer id")
	}

	frames := transferFrames(t, conn)
	if len(frames) != 5 { // begin + 3 chunks + end
		t.Fatalf("frame count = %d, want 5", len(frames))
	}

	begin := frames[0]
	if begin["type"] != "file.begin" || begin["transferId"] != id {
		t.Fatalf("begin frame = %v", begin)
	}
	if begin["name"] != "notes.md" || begin["mimeType"] != "text/markdown" {
		t.Fatalf("begin metadata = %v", begin)
	}
	if begin["size"] != float64(len(payload)) {
		t.Fatalf("declared size = %v", begin["size"])
	}

	var rebuilt []byte
	for i, frame := range frames[1:4] {
		if frame["type"] != "file.chunk" || frame["transferId"] != id {
			t.Fatalf("chunk %d = %v", i, frame)
		}
		if frame["seq"] != float64(i) {
			t.Fatalf("chunk %d seq = %v", i, frame["seq"])
		}
		raw, err := base64.StdEncoding.DecodeString(frame["data"].(string))
		if err != nil {
			t.Fatalf("chunk %d not base64: %v", i, err)
		}
		rebuilt = append(rebuilt, raw...)
	}
	if !bytes.Equal(rebuilt, payload) {
		t.Fatal("reassembled chunks differ from the source")
	}

	end := frames[4]
	if end["type"] != "file.end" || end["transferId"] != id {
		t.Fatalf("end frame = %v", end)
	}
	if end["chunks"] != float64(3) || end["size"] != float64(len(payload)) {
		t.Fatalf("end totals = %v", end)
	}

	wantProgress := []int64{300, 600, 800}
	if len(progress) != len(wantProgress) {
		t.Fatalf("progress = %v", progress)
	}
	for i, want := range wantProgress {
		if progress[i] != want {
			t.Fatalf("progress[%d] = %d, want %d", i, progress[i], want)
		}
	}
}

func TestSendFileRequiresOpenSession(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d)
	defer c.Destroy()

	_, err := c.SendFile(context.Background(), "x.bin", 1, bytes.NewReader([]byte{0}), nil)
	if CodeOf(err) != ErrClosed {
		t.Fatalf("SendFile while closed: %v", err)
	}
}

func TestSendFileCancellation(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d)
	defer c.Destroy()
	c.Connect()
	waitState(t, c, Open)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	payload := bytes.Repeat([]byte{0xAB}, 64)
	if _, err := c.SendFile(ctx, "x.bin", 64, bytes.NewReader(payload), nil); CodeOf(err) != ErrSend {
		t.Fatalf("cancelled SendFile: %v", err)
	}
}

func TestSendFileEmptyPayload(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(d)
	defer c.Destroy()
	c.Connect()
	waitState(t, c, Open)
	conn := d.waitConn(t, 1)

	id, err := c.SendFile(context.Background(), "empty.bin", 0, bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	frames := transferFrames(t, conn)
	if len(frames) != 2 { // begin + end, no chunks
		t.Fatalf("frame count = %d, want 2", len(frames))
	}
	if frames[1]["type"] != "file.end" || frames[1]["transferId"] != id {
		t.Fatalf("end frame = %v", frames[1])
	}
	if frames[1]["chunks"] != float64(0) {
		t.Fatalf("chunk total = %v", frames[1]["chunks"])
	}
}

func TestGuessMimeType(t *testing.T) {
	cases := map[string]string{
		"photo.png":  "image/png",
		"readme.md":  "text/markdown",
		"deploy.yml": "text/yaml",
		"clip.webm":  "video/webm",
		"blob":       "application/octet-stream",
		"data.xyzzy": "application/octet-stream",
	}
	for name, want := range cases {
		if got := guessMimeType(name); got != want {
			t.Errorf("guessMimeType(%q) = %q, want %q", name, got, want)
		}
	}
}
