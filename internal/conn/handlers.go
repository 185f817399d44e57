// file: internal/conn/handlers.go
package conn

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dkoosis/rpcwire/internal/cancel"
)

// RequestHandler answers an inbound request. It may return a plain error
// (wrapped into InternalError) or a *rpcerr.ResponseError (rethrown
// unchanged).
type RequestHandler func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error)

// NotificationHandler reacts to an inbound notification; it has no response
// to emit and any error is only logged.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

type handlerRegistry struct {
	mu            sync.RWMutex
	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
	}
}

func (r *handlerRegistry) onRequest(method string, h RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[method] = h
}

func (r *handlerRegistry) onNotification(method string, h NotificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[method] = h
}

func (r *handlerRegistry) request(method string) (RequestHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.requests[method]
	return h, ok
}

func (r *handlerRegistry) notification(method string) (NotificationHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.notifications[method]
	return h, ok
}

// cancellationRegistry tracks CancellationSources for in-flight inbound
// requests, keyed by the request id's stable string key.
type cancellationRegistry struct {
	mu      sync.Mutex
	sources map[string]*cancel.Source
}

func newCancellationRegistry() *cancellationRegistry {
	return &cancellationRegistry{sources: make(map[string]*cancel.Source)}
}

func (c *cancellationRegistry) register(key string, src *cancel.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[key] = src
}

func (c *cancellationRegistry) deregister(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, key)
}

func (c *cancellationRegistry) cancel(key string) {
	c.mu.Lock()
	src, ok := c.sources[key]
	c.mu.Unlock()
	if ok {
		src.Cancel()
	}
}
