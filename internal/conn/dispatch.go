// file: internal/conn/dispatch.go
package conn

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/dkoosis/rpcwire/internal/cancel"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/dkoosis/rpcwire/internal/stream"
	"github.com/dkoosis/rpcwire/internal/wire"
)

// onMessage is the StreamReader callback wired in NewConnection; it is the
// entry point for every decoded inbound message.
func (c *Connection) onMessage(kind wire.Kind, req *wire.Request, resp *wire.Response, notif *wire.Notification, headers map[string]string) {
	if c.state() == StateDisposed {
		return
	}
	switch kind {
	case wire.KindRequest:
		c.transfer.Capture(kind, req.ID, headers)
		c.tracer.Log("received request "+req.Method, json.RawMessage(req.Params))
		go c.handleInboundRequest(req)
	case wire.KindResponse:
		c.tracer.Log("received response", json.RawMessage(resp.Result))
		c.handleInboundResponse(resp)
	case wire.KindNotification:
		if notif.Method != wire.MethodLogTrace {
			c.tracer.Log("received notification "+notif.Method, json.RawMessage(notif.Params))
		}
		go c.handleInboundNotification(notif)
	default:
		c.log.Error("discarding message of indeterminate shape")
	}
}

// handleInboundRequest dispatches a decoded request to its registered
// handler and turns the outcome into a response on the wire.
func (c *Connection) handleInboundRequest(req *wire.Request) {
	if st := c.state(); st == StateClosed || st == StateDisposed {
		return
	}

	key := req.ID.Key()
	src, tok, disposeSrc := c.newCancellationSource(key)
	c.cancellations.register(key, src)
	defer c.cancellations.deregister(key)
	defer disposeSrc()

	handler, ok := c.handlers.request(req.Method)
	if !ok {
		c.emitResponse(req.ID, nil, rpcerr.NewResponseError(rpcerr.CodeMethodNotFound, "method not found: "+req.Method, nil))
		return
	}

	result, err := c.runHandler(req, handler, tok)

	if err != nil {
		if re, ok := rpcerr.AsResponseError(err); ok {
			c.emitResponse(req.ID, nil, re)
		} else {
			re := rpcerr.ToResponseError(err)
			re.Message = rpcerr.InternalErrorFor(req.Method, err).Message
			c.emitResponse(req.ID, nil, re)
		}
		return
	}
	raw, merr := json.Marshal(result)
	if merr != nil {
		c.emitResponse(req.ID, nil, rpcerr.InternalErrorFor(req.Method, merr))
		return
	}
	if raw == nil || string(raw) == "null" {
		raw = json.RawMessage("null")
	}
	c.emitResponse(req.ID, raw, nil)
}

// newCancellationSource builds the cancellation source backing one inbound
// request. With no CancellationDir configured it's a plain in-process
// Source; otherwise it additionally watches <CancellationDir>/<idKey> for an
// out-of-process cancel signal. The returned dispose func must be called
// once the request finishes, win or lose.
func (c *Connection) newCancellationSource(idKey string) (src *cancel.Source, tok cancel.Token, dispose func()) {
	if c.cancellationDir == "" {
		s := cancel.NewSource()
		return s, s.Token(), func() {}
	}
	path := filepath.Join(c.cancellationDir, idKey)
	fbs, err := cancel.NewFileBackedSource(path)
	if err != nil {
		c.log.Warn("file-backed cancellation unavailable, falling back to in-process source", "path", path, "error", err)
		s := cancel.NewSource()
		return s, s.Token(), func() {}
	}
	return fbs.Source, fbs.Token(), fbs.Dispose
}

// runHandler invokes h, isolating the caller from a panicking handler and,
// when the connection carries a positive request timeout, bounding
// execution with context.WithTimeout. A handler error returned after that
// deadline has passed is tagged RequestFailed.
func (c *Connection) runHandler(req *wire.Request, h RequestHandler, token cancel.Token) (result any, err error) {
	ctx := context.Background()
	if c.requestTimeout > 0 {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(ctx, c.requestTimeout)
		defer cancelFn()
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panicked", "method", req.Method, "panic", r)
			err = rpcerr.Newf("handler panic: %v", r)
		}
	}()

	result, err = h(ctx, req.Params, token)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = rpcerr.WithDetails(err, rpcerr.CategoryHandler, rpcerr.CodeRequestFailed, nil)
	}
	return result, err
}

func (c *Connection) emitResponse(id wire.ID, result json.RawMessage, rerr *rpcerr.ResponseError) {
	ct, charset := c.contentTypeCodec()
	body, err := wire.EncodeResponse(&wire.Response{ID: id, Result: result, Error: rerr}, ct, charset)
	if err != nil {
		c.fireError(rpcerr.Wrap(err, "encode response"))
		return
	}
	enc, _ := c.transfer.GetResponseContentEncoding(id, c.registry.Supported())
	if werr := c.writer.Write(context.Background(), stream.WriteParams{Payload: body, ContentEncoding: enc}); werr != nil {
		c.fireError(rpcerr.Wrap(rpcerr.WriteFailure(werr), "emit response"))
	}
}

// handleInboundResponse correlates an inbound response to its pending
// outbound request and resolves or rejects it.
func (c *Connection) handleInboundResponse(resp *wire.Response) {
	if resp.ID.IsNone() {
		c.log.Error("discarding response with null id", "error", resp.Error)
		return
	}
	entry, ok := c.pending.pop(resp.ID)
	if !ok {
		c.fireError(rpcerr.UnknownID(resp.ID.String()))
		return
	}
	switch {
	case resp.Error != nil:
		entry.reject(resp.Error)
	case len(resp.Result) > 0:
		entry.resolve(resp.Result)
	default:
		entry.reject(errNeitherResultNorError)
	}
}

// handleInboundNotification dispatches a decoded notification, intercepting
// the reserved $/cancelRequest, $/progress, and $/logTrace methods before
// falling through to a registered or unhandled-notification callback.
func (c *Connection) handleInboundNotification(notif *wire.Notification) {
	switch notif.Method {
	case wire.MethodCancelRequest:
		var p cancelParams
		if err := json.Unmarshal(notif.Params, &p); err == nil {
			c.cancellations.cancel(p.ID.Key())
		}
		return
	case wire.MethodProgress:
		var p struct {
			Token string          `json:"token"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(notif.Params, &p); err == nil {
			c.progress.Dispatch(p.Token, p.Value)
		}
		return
	case wire.MethodLogTrace:
		var p struct {
			Message string `json:"message"`
			Verbose string `json:"verbose,omitempty"`
		}
		if err := json.Unmarshal(notif.Params, &p); err == nil {
			var data any
			if p.Verbose != "" {
				data = p.Verbose
			}
			c.tracer.ForwardPeerTrace(p.Message, data)
		}
		return
	}

	if h, ok := c.handlers.notification(notif.Method); ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("notification handler panicked", "method", notif.Method, "panic", r)
				}
			}()
			h(context.Background(), notif.Params)
		}()
		return
	}

	c.callbackMu.Lock()
	fn := c.onUnhandledFn
	c.callbackMu.Unlock()
	if fn != nil {
		fn(notif.Method, notif.Params)
	} else {
		c.log.Warn("unhandled notification", "method", notif.Method)
	}
}
