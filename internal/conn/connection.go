// file: internal/conn/connection.go
package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkoosis/rpcwire/internal/codec"
	"github.com/dkoosis/rpcwire/internal/fsm"
	"github.com/dkoosis/rpcwire/internal/logging"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/dkoosis/rpcwire/internal/stream"
	"github.com/dkoosis/rpcwire/internal/trace"
	"github.com/dkoosis/rpcwire/internal/transfer"
	"github.com/dkoosis/rpcwire/internal/wire"
)

// Connection is MessageConnection: the single object a caller
// talks to, wiring together framing, codecs, correlation, handler dispatch,
// cancellation, and tracing behind one lifecycle.
type Connection struct {
	reader   *stream.Reader
	writer   *stream.Writer
	registry *codec.Registry
	transfer *transfer.Context

	pending       *pendingTable
	handlers      *handlerRegistry
	cancellations *cancellationRegistry
	progress      *trace.Registry
	tracer        *trace.State

	lifecycleMu sync.Mutex
	lifecycle   fsm.FSM

	nextID          int64
	requestTimeout  time.Duration
	cancellationDir string
	log             logging.Logger

	callbackMu    sync.Mutex
	onErrorFn     func(error)
	onCloseFn     func()
	onDisposeFn   func()
	onUnhandledFn func(method string, params json.RawMessage)
}

// Options configures a new Connection.
type Options struct {
	Registry                     *codec.Registry
	RequestTimeout               time.Duration // 0 disables the per-handler timeout
	PartialMessageTimeout        time.Duration // 0 disables StreamReader's stall timer
	DefaultRequestEncodings      []string
	DefaultResponseEncodings     []string
	DefaultNotificationEncodings []string
	// CancellationDir, if set, is the directory watched for out-of-process
	// cancellation presence files: each inbound request's cancellation
	// source watches <CancellationDir>/<id key> (the ID's Key form, e.g.
	// "n:7" or "s:abc") in addition to responding to
	// $/cancelRequest. Empty disables file-backed cancellation.
	CancellationDir string
}

// NewConnection wires a Connection over w. Call Listen with the matching
// reader to start dispatch. A nil Registry gets a fresh default codec
// registry (JSON over UTF-8).
func NewConnection(w io.Writer, opts Options) *Connection {
	reg := opts.Registry
	if reg == nil {
		reg = codec.NewRegistry()
	}
	log := logging.GetLogger("conn")

	c := &Connection{
		registry:        reg,
		transfer:        transfer.NewContext().WithDefaults(opts.DefaultNotificationEncodings, opts.DefaultRequestEncodings, opts.DefaultResponseEncodings),
		pending:         newPendingTable(),
		handlers:        newHandlerRegistry(),
		cancellations:   newCancellationRegistry(),
		progress:        trace.NewRegistry(),
		tracer:          trace.NewState(),
		requestTimeout:  opts.RequestTimeout,
		cancellationDir: opts.CancellationDir,
		log:             log,
	}
	c.lifecycle = newLifecycle(log)

	c.writer = stream.NewWriter(w, reg)
	c.writer.OnError(func(err error, msg []byte, count int) {
		c.fireError(rpcerr.Wrap(rpcerr.WriteFailure(err), fmt.Sprintf("write failed (count=%d)", count)))
	})

	c.reader = stream.NewReader(reg, opts.PartialMessageTimeout, stream.Callbacks{
		OnMessage: c.onMessage,
		OnPartialMessage: func(token uint64, waiting time.Duration) {
			c.log.Warn("partial message stalled", "token", token, "waiting", waiting)
		},
		OnError: func(err error) {
			c.fireError(rpcerr.Wrap(rpcerr.ReadFailure(err), "read failed"))
			c.transitionClose()
		},
		OnClose: func() {
			if c.state() != StateDisposed {
				c.fireClose()
			}
			c.transitionClose()
		},
	})

	return c
}

// Listen transitions New -> Listening and starts the reader loop. Calling it
// twice returns ErrAlreadyListen.
func (c *Connection) Listen(ctx context.Context, r io.Reader) error {
	c.lifecycleMu.Lock()
	if c.lifecycle.CurrentState() != StateNew {
		c.lifecycleMu.Unlock()
		return rpcerr.ErrAlreadyListen
	}
	if err := c.lifecycle.Transition(ctx, eventListen, nil); err != nil {
		c.lifecycleMu.Unlock()
		return rpcerr.Wrap(err, "listen")
	}
	c.lifecycleMu.Unlock()

	go c.reader.Run(ctx, r)
	return nil
}

func (c *Connection) state() fsm.State {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return c.lifecycle.CurrentState()
}

func (c *Connection) transitionClose() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.lifecycle.CurrentState() == StateListening {
		_ = c.lifecycle.Transition(context.Background(), eventClose, nil)
	}
	c.pending.rejectAll(rpcerr.ErrClosed)
}

// Dispose transitions to Disposed. All pending responses are rejected, all
// inbound messages are dropped thereafter.
func (c *Connection) Dispose() error {
	c.lifecycleMu.Lock()
	if c.lifecycle.CurrentState() == StateDisposed {
		c.lifecycleMu.Unlock()
		return nil
	}
	err := c.lifecycle.Transition(context.Background(), eventDispose, nil)
	c.lifecycleMu.Unlock()
	if err != nil {
		return rpcerr.Wrap(err, "dispose")
	}

	c.pending.rejectAll(rpcerr.ErrDisposed)
	c.writer.Close()

	c.callbackMu.Lock()
	fn := c.onDisposeFn
	c.callbackMu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// OnError registers the transport/handler failure sink.
func (c *Connection) OnError(fn func(error)) {
	c.callbackMu.Lock()
	c.onErrorFn = fn
	c.callbackMu.Unlock()
}

// OnClose registers the peer-closed-stream callback.
func (c *Connection) OnClose(fn func()) {
	c.callbackMu.Lock()
	c.onCloseFn = fn
	c.callbackMu.Unlock()
}

// OnDispose registers the dispose-completed callback.
func (c *Connection) OnDispose(fn func()) {
	c.callbackMu.Lock()
	c.onDisposeFn = fn
	c.callbackMu.Unlock()
}

// OnUnhandledNotification registers the fallback sink for notifications with
// no registered handler.
func (c *Connection) OnUnhandledNotification(fn func(method string, params json.RawMessage)) {
	c.callbackMu.Lock()
	c.onUnhandledFn = fn
	c.callbackMu.Unlock()
}

func (c *Connection) fireError(err error) {
	c.callbackMu.Lock()
	fn := c.onErrorFn
	c.callbackMu.Unlock()
	if fn != nil {
		fn(err)
	} else {
		c.log.Error("unhandled connection error", "error", err)
	}
}

func (c *Connection) fireClose() {
	c.callbackMu.Lock()
	fn := c.onCloseFn
	c.callbackMu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnRequest registers the handler invoked for inbound requests matching
// method.
func (c *Connection) OnRequest(method string, h RequestHandler) error {
	if st := c.state(); st == StateClosed || st == StateDisposed {
		return rpcerr.ErrClosed
	}
	c.handlers.onRequest(method, h)
	return nil
}

// OnNotification registers the handler invoked for inbound notifications
// matching method.
func (c *Connection) OnNotification(method string, h NotificationHandler) error {
	if st := c.state(); st == StateClosed || st == StateDisposed {
		return rpcerr.ErrClosed
	}
	c.handlers.onNotification(method, h)
	return nil
}

// OnProgress subscribes to $/progress notifications carrying token.
func (c *Connection) OnProgress(token string, h trace.ProgressHandler) (dispose func()) {
	return c.progress.On(token, h)
}

// contentTypeCodec resolves the connection's default outbound content-type
// codec: the one registered under the empty name's fallback, DefaultContentType,
// paired with the utf-8 charset every built-in codec speaks.
func (c *Connection) contentTypeCodec() (codec.ContentTypeCodec, string) {
	ct, _ := c.registry.ContentType("")
	return ct, "utf-8"
}

// Trace configures the connection's tracing level and destination.
func (c *Connection) Trace(level trace.Level, tracer trace.Tracer, sendNotification bool) {
	c.tracer.Set(level, tracer, sendNotification)
	if sendNotification {
		_ = c.SendNotification(context.Background(), wire.MethodSetTrace, traceLevelName(level))
	}
}

func traceLevelName(l trace.Level) string {
	switch l {
	case trace.Messages:
		return "messages"
	case trace.Verbose:
		return "verbose"
	default:
		return "off"
	}
}
