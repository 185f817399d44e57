// Package transfer implements TransferContext: the bridge
// between a request's captured Accept-Encoding header and the encoding
// chosen for its eventual response, breaking the writer/reader cyclic
// dependency by living as an externally owned object shared by both.
// file: internal/transfer/context.go
package transfer

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dkoosis/rpcwire/internal/wire"
)

// Context captures per-request headers and negotiates content encodings.
type Context struct {
	mu      sync.Mutex
	headers map[string]map[string]string // id.Key() -> headers

	defaultNotificationEncodings []string
	defaultRequestEncodings      []string
	defaultResponseEncodings     []string

	cachedFor    string // identity key of the `supported` slice last used
	cachedHeader []string
}

// NewContext builds a Context with no default encoding preferences; the
// connection configures defaults via WithDefaults if it wants to always
// prefer a given codec regardless of the peer's Accept-Encoding.
func NewContext() *Context {
	return &Context{headers: make(map[string]map[string]string)}
}

// WithDefaults configures the default encoding lists consulted by
// GetNotificationContentEncoding, GetRequestContentEncoding and, before any
// per-request negotiation, GetResponseContentEncoding.
func (c *Context) WithDefaults(notification, request, response []string) *Context {
	c.defaultNotificationEncodings = notification
	c.defaultRequestEncodings = request
	c.defaultResponseEncodings = response
	return c
}

// Capture stores the headers received with an inbound request, keyed by id,
// so the eventual response can consult Accept-Encoding. Only requests carry
// headers worth capturing; responses and notifications are no-ops.
func (c *Context) Capture(kind wire.Kind, id wire.ID, headers map[string]string) {
	if kind != wire.KindRequest {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[id.Key()] = headers
}

// release drops the captured headers for id; called once its response has
// been emitted.
func (c *Context) release(id wire.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.headers, id.Key())
}

func firstSupported(preferred, supported []string) (string, bool) {
	for _, p := range preferred {
		for _, s := range supported {
			if p == s {
				return s, true
			}
		}
	}
	return "", false
}

// GetNotificationContentEncoding returns the connection's default
// notification encoding if it is among supported.
func (c *Context) GetNotificationContentEncoding(supported []string) (string, bool) {
	return firstSupported(c.defaultNotificationEncodings, supported)
}

// GetRequestContentEncoding returns the connection's default request
// encoding if it is among supported.
func (c *Context) GetRequestContentEncoding(supported []string) (string, bool) {
	return firstSupported(c.defaultRequestEncodings, supported)
}

// GetResponseContentEncoding resolves the encoding for the response to id.
// Configured defaults win if present; otherwise it falls back to the
// Accept-Encoding captured with the original request. If no headers were
// captured for id, it returns none rather than guessing.
func (c *Context) GetResponseContentEncoding(id wire.ID, supported []string) (string, bool) {
	defer c.release(id)

	if enc, ok := firstSupported(c.defaultResponseEncodings, supported); ok {
		return enc, true
	}

	c.mu.Lock()
	headers, found := c.headers[id.Key()]
	c.mu.Unlock()

	if !found {
		return "", false
	}
	accept := headers["Accept-Encoding"]
	if accept == "" {
		accept = headers["accept-encoding"]
	}
	entries, wildcardQ := parseAcceptEncoding(accept)
	return bestMatch(entries, wildcardQ, supported)
}

// GetResponseAcceptEncodings builds the descending q-valued list the writer
// advertises on outbound requests. The `q = q - diff`
// stepping is preserved exactly, including the resulting q=0 for the final
// entry of a 3-or-more element list.
func (c *Context) GetResponseAcceptEncodings(supported []string) []string {
	key := strings.Join(supported, ",")

	c.mu.Lock()
	if c.cachedFor == key && c.cachedHeader != nil {
		cached := c.cachedHeader
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	n := len(supported)
	result := make([]string, 0, n)
	if n == 0 {
		return result
	}
	q := 1.0
	diff := 0.0
	if n > 1 {
		diff = 1.0 / float64(n-1)
	}
	for _, name := range supported {
		result = append(result, fmt.Sprintf("%s;q=%s", name, formatQ(q)))
		q -= diff
	}

	c.mu.Lock()
	c.cachedFor = key
	c.cachedHeader = result
	c.mu.Unlock()
	return result
}

func formatQ(q float64) string {
	if q < 0 {
		q = 0
	}
	return strconv.FormatFloat(q, 'f', -1, 64)
}
