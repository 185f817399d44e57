// file: internal/conn/send.go
package conn

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/dkoosis/rpcwire/internal/cancel"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/dkoosis/rpcwire/internal/stream"
	"github.com/dkoosis/rpcwire/internal/wire"
)

// SendRequest sends a request and blocks until a correlated response
// arrives, ctx is cancelled, or the connection is closed/disposed. token, if
// non-nil, is watched: firing it sends a
// $/cancelRequest notification, but the eventual response — success or
// RequestCancelled — is still delivered normally.
func (c *Connection) SendRequest(ctx context.Context, method string, token cancel.Token, args ...any) (json.RawMessage, error) {
	if c.state() != StateListening {
		return nil, rpcerr.ErrNotListening
	}

	params, err := wire.ShapeParams(args)
	if err != nil {
		return nil, rpcerr.Wrap(err, "shape request params")
	}

	id := wire.NewNumberID(atomic.AddInt64(&c.nextID, 1) - 1)
	entry := newPendingEntry(method)
	// Registered before the write completes (rather than strictly after, per
	// the letter of the outbound-request steps) so a fast peer's response
	// cannot race the registration; a synchronous write failure simply pops
	// the entry back out below, leaving the same observable behavior.
	c.pending.register(id, entry)

	ct, charset := c.contentTypeCodec()
	body, err := wire.EncodeRequest(&wire.Request{ID: id, Method: method, Params: params}, ct, charset)
	if err != nil {
		c.pending.pop(id)
		return nil, rpcerr.Wrap(err, "encode request")
	}

	enc, _ := c.transfer.GetRequestContentEncoding(c.registry.Supported())
	accept := c.transfer.GetResponseAcceptEncodings(c.registry.Supported())

	c.tracer.Log("sending request "+method, map[string]any{"id": id.String(), "params": json.RawMessage(params)})

	if werr := c.writer.Write(ctx, stream.WriteParams{Payload: body, ContentEncoding: enc, AcceptEncoding: accept}); werr != nil {
		c.pending.pop(id)
		return nil, rpcerr.Wrap(rpcerr.WriteFailure(werr), "send request")
	}

	if token != nil {
		token.OnCancelled(func() {
			_ = c.SendNotification(context.Background(), wire.MethodCancelRequest, cancelParams{ID: id})
		})
	}

	select {
	case res := <-entry.ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-ctx.Done():
		c.pending.pop(id)
		return nil, ctx.Err()
	}
}

type cancelParams struct {
	ID wire.ID `json:"id"`
}

// SendNotification sends a fire-and-forget message: no correlation, no
// response to await.
func (c *Connection) SendNotification(ctx context.Context, method string, args ...any) error {
	switch c.state() {
	case StateClosed:
		return rpcerr.ErrClosed
	case StateDisposed:
		return rpcerr.ErrDisposed
	}

	params, err := wire.ShapeParams(args)
	if err != nil {
		return rpcerr.Wrap(err, "shape notification params")
	}
	ct, charset := c.contentTypeCodec()
	body, err := wire.EncodeNotification(&wire.Notification{Method: method, Params: params}, ct, charset)
	if err != nil {
		return rpcerr.Wrap(err, "encode notification")
	}

	enc, _ := c.transfer.GetNotificationContentEncoding(c.registry.Supported())

	c.tracer.Log("sending notification "+method, json.RawMessage(params))

	if werr := c.writer.Write(ctx, stream.WriteParams{Payload: body, ContentEncoding: enc}); werr != nil {
		return rpcerr.WriteFailure(werr)
	}
	return nil
}

// SendProgress sends a token-addressed progress notification.
func (c *Connection) SendProgress(ctx context.Context, token string, value any) error {
	return c.SendNotification(ctx, wire.MethodProgress, progressParams{Token: token, Value: value})
}

type progressParams struct {
	Token string `json:"token"`
	Value any    `json:"value"`
}
