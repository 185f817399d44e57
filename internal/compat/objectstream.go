// Package compat bridges this module's wire format to code written against
// sourcegraph/jsonrpc2.ObjectStream. Rather than hand-rolling a second
// Content-Length parser, ObjectStream reuses framing.MessageBuffer so both
// sides of the bridge stay in sync with the rest of this module's header
// handling (duplicate-header rules, Content-Length/Content-length spellings).
// file: internal/compat/objectstream.go
package compat

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dkoosis/rpcwire/internal/framing"
	"github.com/sourcegraph/jsonrpc2"
)

// ObjectStream implements jsonrpc2.ObjectStream over an arbitrary
// io.ReadWriter using this module's Content-Length framing, so a caller
// already invested in sourcegraph/jsonrpc2's Conn/Handler can drive a
// transport this module also understands on the wire.
type ObjectStream struct {
	r       *bufio.Reader
	w       io.Writer
	buf     *framing.MessageBuffer
	writeMu sync.Mutex
}

var _ jsonrpc2.ObjectStream = (*ObjectStream)(nil)

// NewObjectStream wraps rw for use as a jsonrpc2.ObjectStream.
func NewObjectStream(rw io.ReadWriter) *ObjectStream {
	return &ObjectStream{
		r:   bufio.NewReader(rw),
		w:   rw,
		buf: framing.New(),
	}
}

// WriteObject marshals obj and frames it with a Content-Length header.
func (s *ObjectStream) WriteObject(obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("compat.ObjectStream.WriteObject: marshal: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(s.w, header); err != nil {
		return fmt.Errorf("compat.ObjectStream.WriteObject: write header: %w", err)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("compat.ObjectStream.WriteObject: write body: %w", err)
	}
	return nil
}

// ReadObject blocks until one full framed message has arrived, then
// unmarshals it into v. It feeds framing.MessageBuffer a chunk at a time so
// a message split across several reads is handled the same way
// stream.Reader handles it.
func (s *ObjectStream) ReadObject(v any) error {
	for {
		if headers, ok, err := s.buf.TryReadHeaders(); err != nil {
			return fmt.Errorf("compat.ObjectStream.ReadObject: %w", err)
		} else if ok {
			length, err := framing.ParseContentLength(headers)
			if err != nil {
				return fmt.Errorf("compat.ObjectStream.ReadObject: %w", err)
			}
			for {
				content, ok, err := s.buf.TryReadContent(length, nil)
				if err != nil {
					return fmt.Errorf("compat.ObjectStream.ReadObject: %w", err)
				}
				if ok {
					return json.Unmarshal(content, v)
				}
				if err := s.fill(); err != nil {
					return err
				}
			}
		}
		if err := s.fill(); err != nil {
			return err
		}
	}
}

func (s *ObjectStream) fill() error {
	chunk := make([]byte, 4096)
	n, err := s.r.Read(chunk)
	if n > 0 {
		s.buf.Append(chunk[:n])
	}
	if err != nil {
		return err
	}
	return nil
}

// Close is a no-op: this stream does not own rw's lifecycle.
func (s *ObjectStream) Close() error {
	return nil
}
