package wirekeep

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
// Chunked file transfer
// ============================================================================

// DefaultChunkSize is the raw chunk size before base64 encoding.
const DefaultChunkSize = 64 * 1024

// Transfer message types, emitted on the peer as dynamic events.
const (
	transferBeginType = "file.begin"
	transferChunkType = "file.chunk"
	transferEndType   = "file.end"
)

// FileTransferOptions tunes SendFile.
type FileTransferOptions struct {
	// ChunkSize is the raw bytes per chunk. Defaults to DefaultChunkSize.
	ChunkSize int

	// MimeType overrides the type guessed from the file name extension.
	MimeType string

	// OnProgress is called after each chunk with cumulative raw bytes
	// sent and the declared total size.
	OnProgress func(sent, total int64)
}

// SendFile streams r over the session as a sequential chunk loop: one
// file.begin message, base64-encoded file.chunk messages in order, and
// a closing file.end message. The transfer aborts on the first failed
// chunk. The session must be open for the whole transfer; queued-while-
// reconnecting chunks are not supported. Returns the transfer ID.
func (c *Client) SendFile(ctx context.Context, name string, size int64, r io.Reader, opts *FileTransferOptions) (string, error) {
	if opts == nil {
		opts = &FileTransferOptions{}
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = guessMimeType(name)
	}

	if st := c.status.get(); st != Open {
		return "", NewError(ErrClosed, "session is "+st.String())
	}

	id := uuid.NewString()
	begin := map[string]any{
		"type":       transferBeginType,
		"transferId": id,
		"name":       name,
		"size":       size,
		"mimeType":   mimeType,
	}
	if err := c.Send(begin); err != nil {
		return "", WrapError(ErrSend, "file transfer begin failed", err)
	}

	buf := make([]byte, chunkSize)
	var sent int64
	seq := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", WrapError(ErrSend, "file transfer cancelled", err)
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := map[string]any{
				"type":       transferChunkType,
				"transferId": id,
				"seq":        seq,
				"data":       base64.StdEncoding.EncodeToString(buf[:n]),
			}
			if serr := c.Send(chunk); serr != nil {
				return "", WrapError(ErrSend, fmt.Sprintf("file transfer chunk %d failed", seq), serr)
			}
			seq++
			sent += int64(n)
			if opts.OnProgress != nil {
				opts.OnProgress(sent, size)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", WrapError(ErrSend, "file transfer read failed", err)
		}
	}

	end := map[string]any{
		"type":       transferEndType,
		"transferId": id,
		"chunks":     seq,
		"size":       sent,
	}
	if err := c.Send(end); err != nil {
		return "", WrapError(ErrSend, "file transfer end failed", err)
	}
	return id, nil
}

// guessMimeType returns a MIME type from the file extension.
func guessMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	// Fallback for types not in Go's builtin registry
	fallback := map[string]string{
		".md": "text/markdown", ".yaml": "text/yaml", ".yml": "text/yaml",
		".webp": "image/webp", ".webm": "video/webm",
	}
	if m, ok := fallback[ext]; ok {
		return m
	}
	t := mime.TypeByExtension(ext)
	if t != "" {
		if idx := strings.Index(t, ";"); idx > 0 {
			t = strings.TrimSpace(t[:idx])
		}
		return t
	}
	return "application/octet-stream"
}
