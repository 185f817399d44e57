// Package framing implements MessageBuffer: the incremental byte
// accumulator that turns a byte stream into header blocks and content
// blocks, fed by a push-style Append so a reader can hand it arbitrary
// chunk boundaries without assuming a read lines up with a message edge.
// file: internal/framing/buffer.go
package framing

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

var headerSeparator = []byte("\r\n\r\n")

// MessageBuffer accumulates bytes and extracts one header block, then one
// content block, per message.
type MessageBuffer struct {
	bytes  []byte
	cursor int
}

// New returns an empty MessageBuffer.
func New() *MessageBuffer {
	return &MessageBuffer{}
}

// Append adds chunk to the buffer. Implementations may receive chunk
// boundaries that split a header or content block arbitrarily; Append makes
// no assumptions about alignment.
func (b *MessageBuffer) Append(chunk []byte) {
	b.bytes = append(b.bytes, chunk...)
}

func (b *MessageBuffer) compact() {
	if b.cursor == 0 {
		return
	}
	b.bytes = append([]byte(nil), b.bytes[b.cursor:]...)
	b.cursor = 0
}

// TryReadHeaders scans for the first blank-line-terminated header block. It
// returns (nil, false, nil) if one has not fully arrived yet. Header keys
// keep their original casing and are not normalized; callers look up the
// exact spellings they accept. Duplicate headers resolve to the last
// occurrence.
func (b *MessageBuffer) TryReadHeaders() (map[string]string, bool, error) {
	remaining := b.bytes[b.cursor:]
	idx := bytes.Index(remaining, headerSeparator)
	if idx < 0 {
		return nil, false, nil
	}

	headerBlock := remaining[:idx]
	headers := make(map[string]string)
	for _, line := range strings.Split(string(headerBlock), "\r\n") {
		if line == "" {
			continue
		}
		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			return nil, false, rpcerr.WithDetails(
				rpcerr.Newf("malformed header line %q: missing ':'", line),
				rpcerr.CategoryProtocol, -32700, nil)
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		headers[key] = value // last occurrence wins
	}

	b.cursor += idx + len(headerSeparator)
	b.compact()
	return headers, true, nil
}

// TryReadContent returns exactly length bytes of content if that many have
// arrived, else (nil, false, nil). If decode is non-nil the slice is passed
// through it (the content-encoding decoder) before being returned.
func (b *MessageBuffer) TryReadContent(length int, decode func([]byte) ([]byte, error)) ([]byte, bool, error) {
	remaining := b.bytes[b.cursor:]
	if len(remaining) < length {
		return nil, false, nil
	}

	content := make([]byte, length)
	copy(content, remaining[:length])
	b.cursor += length
	b.compact()

	if decode != nil {
		decoded, err := decode(content)
		if err != nil {
			return nil, false, rpcerr.Wrap(err, "decode content")
		}
		return decoded, true, nil
	}
	return content, true, nil
}

// ParseContentLength parses the mandatory Content-Length header; a
// non-numeric value is treated as fatal. It accepts exactly the spellings
// "Content-Length" and "Content-length".
func ParseContentLength(headers map[string]string) (int, error) {
	raw, ok := headers["Content-Length"]
	if !ok {
		raw, ok = headers["Content-length"]
	}
	if !ok {
		return 0, rpcerr.WithDetails(
			rpcerr.New("missing Content-Length header"),
			rpcerr.CategoryProtocol, -32700, nil)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, rpcerr.WithDetails(
			rpcerr.Wrapf(err, "invalid Content-Length %q", raw),
			rpcerr.CategoryProtocol, -32700, nil)
	}
	return n, nil
}
