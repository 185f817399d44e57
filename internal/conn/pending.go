// file: internal/conn/pending.go
package conn

import (
	"encoding/json"
	"sync"

	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/dkoosis/rpcwire/internal/wire"
)

// pendingResult is what a correlated response (or a terminal connection
// failure) delivers to the waiting sendRequest call.
type pendingResult struct {
	result json.RawMessage
	err    error
}

// pendingEntry is a single-fire channel the outbound caller blocks on, with
// the method name it was sent for. The $/cancelRequest wiring for the
// caller's token lives in SendRequest, not here.
type pendingEntry struct {
	method string
	ch     chan pendingResult
	once   sync.Once
}

func newPendingEntry(method string) *pendingEntry {
	return &pendingEntry{method: method, ch: make(chan pendingResult, 1)}
}

func (p *pendingEntry) resolve(result json.RawMessage) {
	p.once.Do(func() { p.ch <- pendingResult{result: result} })
}

func (p *pendingEntry) reject(err error) {
	p.once.Do(func() { p.ch <- pendingResult{err: err} })
}

// pendingTable is the id-keyed correlation map tracking outbound requests
// awaiting a response, realized as a mutex-protected map rather than a
// single-task runner.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingEntry)}
}

func (t *pendingTable) register(id wire.ID, e *pendingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id.Key()] = e
}

func (t *pendingTable) pop(id wire.ID) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id.Key()]
	if ok {
		delete(t.entries, id.Key())
	}
	return e, ok
}

// rejectAll is used on dispose/close: every still-pending outbound request is
// rejected with cause rather than left to hang forever.
func (t *pendingTable) rejectAll(cause error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pendingEntry)
	t.mu.Unlock()

	for _, e := range entries {
		e.reject(cause)
	}
}

var errNeitherResultNorError = rpcerr.New("response has neither result nor error")
