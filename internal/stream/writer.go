// file: internal/stream/writer.go
package stream

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dkoosis/rpcwire/internal/codec"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

// Writer serializes messages into framed bytes and enforces write ordering
// via a 1-permit semaphore; a separate mutex guards only the error counter.
// Using
// golang.org/x/sync's semaphore.Weighted for this — rather than a bare
// sync.Mutex — is deliberate: it gives acquisition a context-cancelable
// Acquire, which a plain mutex cannot, so a write blocked on a stalled peer
// can still be abandoned when the caller's context is cancelled.
type Writer struct {
	w        io.Writer
	sem      *semaphore.Weighted
	registry *codec.Registry

	mu         sync.Mutex
	errorCount int
	onError    func(err error, msg []byte, count int)
	onClose    func()
}

// NewWriter builds a Writer over the given sink.
func NewWriter(w io.Writer, registry *codec.Registry) *Writer {
	if registry == nil {
		registry = codec.NewRegistry()
	}
	return &Writer{w: w, sem: semaphore.NewWeighted(1), registry: registry}
}

// OnError registers the write-failure callback: fired with the error, the
// message bytes that failed, and the running error count, which resets on
// the next successful write.
func (wr *Writer) OnError(fn func(err error, msg []byte, count int)) { wr.onError = fn }

// OnClose registers the close callback.
func (wr *Writer) OnClose(fn func()) { wr.onClose = fn }

// WriteParams bundles the pieces StreamWriter needs to frame one message.
type WriteParams struct {
	Payload         []byte // already content-type encoded (JSON)
	ContentEncoding string // "" for none
	AcceptEncoding  []string
}

// Write acquires the single write permit, applies the selected content
// encoding, emits the ASCII headers plus the body, and releases the permit
// only once both writes have completed. Two
// concurrent Write calls never interleave their bytes.
func (wr *Writer) Write(ctx context.Context, p WriteParams) error {
	if err := wr.sem.Acquire(ctx, 1); err != nil {
		return rpcerr.Wrap(err, "acquire write permit")
	}
	defer wr.sem.Release(1)

	body := p.Payload
	if p.ContentEncoding != "" {
		enc, ok := wr.registry.ContentEncoding(p.ContentEncoding)
		if !ok {
			err := rpcerr.Newf("unknown content-encoding %q", p.ContentEncoding)
			wr.fail(err, p.Payload)
			return err
		}
		encoded, err := enc.Encode(body)
		if err != nil {
			wr.fail(err, p.Payload)
			return rpcerr.Wrap(err, "encode content")
		}
		body = encoded
	}

	header := fmt.Sprintf("Content-Length: %d\r\n", len(body))
	if p.ContentEncoding != "" {
		header += fmt.Sprintf("Content-Encoding: %s\r\n", p.ContentEncoding)
	}
	if len(p.AcceptEncoding) > 0 {
		list := ""
		for i, e := range p.AcceptEncoding {
			if i > 0 {
				list += ", "
			}
			list += e
		}
		header += fmt.Sprintf("Accept-Encoding: %s\r\n", list)
	}
	header += "\r\n"

	if _, err := io.WriteString(wr.w, header); err != nil {
		wr.fail(err, p.Payload)
		return rpcerr.Wrap(err, "write headers")
	}
	if _, err := wr.w.Write(body); err != nil {
		wr.fail(err, p.Payload)
		return rpcerr.Wrap(err, "write body")
	}

	wr.mu.Lock()
	wr.errorCount = 0
	wr.mu.Unlock()
	return nil
}

func (wr *Writer) fail(err error, msg []byte) {
	wr.mu.Lock()
	wr.errorCount++
	count := wr.errorCount
	wr.mu.Unlock()
	if wr.onError != nil {
		wr.onError(err, msg, count)
	}
}

// Close reports closure to subscribers. The underlying sink's closing is the
// transport adapter's responsibility, not the Writer's.
func (wr *Writer) Close() {
	if wr.onClose != nil {
		wr.onClose()
	}
}
