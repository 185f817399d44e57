// Package stream implements StreamReader and StreamWriter,
// the layer that drives MessageBuffer from a real byte source/sink and
// enforces the write-ordering discipline. It tolerates arbitrary chunk
// boundaries rather than assuming one Read call lines up with one header
// line.
// file: internal/stream/reader.go
package stream

import (
	"context"
	"io"
	"time"

	"github.com/dkoosis/rpcwire/internal/codec"
	"github.com/dkoosis/rpcwire/internal/framing"
	"github.com/dkoosis/rpcwire/internal/logging"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/dkoosis/rpcwire/internal/wire"
)

// DefaultPartialMessageTimeout is the default partial-message wait (10s);
// 0 disables it.
const DefaultPartialMessageTimeout = 10 * time.Second

// Callbacks are invoked by StreamReader as messages and lifecycle events
// occur. All are optional.
type Callbacks struct {
	OnMessage        func(kind wire.Kind, req *wire.Request, resp *wire.Response, notif *wire.Notification, headers map[string]string)
	OnPartialMessage func(token uint64, waiting time.Duration)
	OnError          func(error)
	OnClose          func()
}

// Reader drives a MessageBuffer from a readable byte source.
type Reader struct {
	buf      *framing.MessageBuffer
	registry *codec.Registry
	timeout  time.Duration
	log      logging.Logger
	cb       Callbacks

	nextContentLength   int
	nextContentEncoding string
	nextContentType     string
	nextCharset         string
	pendingHeaders      map[string]string
	haveHeaders         bool
	messageToken        uint64
	armedAt             time.Time
	timer               *time.Timer
}

// NewReader builds a Reader. registry resolves content-type/content-encoding
// codecs; a nil registry gets a fresh default registry.
func NewReader(registry *codec.Registry, timeout time.Duration, cb Callbacks) *Reader {
	if registry == nil {
		registry = codec.NewRegistry()
	}
	return &Reader{
		buf:               framing.New(),
		registry:          registry,
		timeout:           timeout,
		log:               logging.GetLogger("stream.reader"),
		cb:                cb,
		nextContentLength: -1,
	}
}

// Run reads from r until it returns an error (including io.EOF), feeding
// every chunk to Feed. End-of-stream fires OnClose; any other read error
// fires OnError.
func (rd *Reader) Run(ctx context.Context, r io.Reader) {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			if feedErr := rd.Feed(buf[:n]); feedErr != nil {
				if rd.cb.OnError != nil {
					rd.cb.OnError(feedErr)
				}
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				if rd.cb.OnClose != nil {
					rd.cb.OnClose()
				}
			} else if rd.cb.OnError != nil {
				rd.cb.OnError(rpcerr.Wrap(err, "stream read"))
			}
			return
		}
	}
}

// Feed appends chunk to the internal buffer and extracts as many complete
// messages as are now available, dispatching each via OnMessage in arrival
// order, even when a single chunk contains several concatenated messages.
func (rd *Reader) Feed(chunk []byte) error {
	rd.buf.Append(chunk)

	for {
		if !rd.haveHeaders {
			headers, ok, err := rd.buf.TryReadHeaders()
			if err != nil {
				return err
			}
			if !ok {
				rd.arm()
				return nil
			}
			length, err := framing.ParseContentLength(headers)
			if err != nil {
				return err
			}
			rd.nextContentLength = length
			rd.nextContentEncoding = headers["Content-Encoding"]
			contentType := headers["Content-Type"]
			if contentType == "" {
				contentType = headers["Content-type"]
			}
			rd.nextContentType, rd.nextCharset = codec.SplitContentType(contentType)
			rd.pendingHeaders = headers
			rd.haveHeaders = true
		}

		var decode func([]byte) ([]byte, error)
		if rd.nextContentEncoding != "" {
			enc, ok := rd.registry.ContentEncoding(rd.nextContentEncoding)
			if !ok {
				return rpcerr.Newf("unknown content-encoding %q", rd.nextContentEncoding)
			}
			decode = enc.Decode
		}

		content, ok, err := rd.buf.TryReadContent(rd.nextContentLength, decode)
		if err != nil {
			return err
		}
		if !ok {
			rd.arm()
			return nil
		}

		rd.disarm()
		rd.messageToken++
		headers := rd.pendingHeaders
		contentTypeName, charset := rd.nextContentType, rd.nextCharset
		rd.haveHeaders = false
		rd.nextContentLength = -1
		rd.nextContentEncoding = ""
		rd.nextContentType = ""
		rd.nextCharset = ""
		rd.pendingHeaders = nil

		ct, ok := rd.registry.ContentType(contentTypeName)
		if !ok {
			return rpcerr.Newf("unknown content-type %q", contentTypeName)
		}
		kind, req, resp, notif, decErr := wire.Decode(content, ct, charset)
		if decErr != nil {
			return decErr
		}
		if rd.cb.OnMessage != nil {
			rd.cb.OnMessage(kind, req, resp, notif, headers)
		}
	}
}

func (rd *Reader) arm() {
	if rd.timeout <= 0 || rd.cb.OnPartialMessage == nil {
		return
	}
	if rd.timer == nil {
		rd.armedAt = time.Now()
		token := rd.messageToken + 1
		rd.timer = time.AfterFunc(rd.timeout, func() {
			rd.cb.OnPartialMessage(token, time.Since(rd.armedAt))
			rd.timer = nil
			rd.arm()
		})
	}
}

func (rd *Reader) disarm() {
	if rd.timer != nil {
		rd.timer.Stop()
		rd.timer = nil
	}
}
