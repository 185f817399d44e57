// Package cancel implements CancellationToken and CancellationSource (spec
// §4.F): a fire-once observable cooperative stop signal, with an optional
// file-based backing for cross-process signaling grounded on the
// fsnotify-driven watcher in troberti-clangd-query's
// internal/daemon/watcher.go.
// file: internal/cancel/token.go
package cancel

import "sync"

// Token is the observer side of a cancellation signal.
type Token interface {
	// IsCancelled is monotonic: once true, it is never false again.
	IsCancelled() bool
	// OnCancelled registers handler to run at most once, when the token
	// fires. If the token has already fired, handler runs on the next
	// scheduling tick rather than synchronously. The
	// returned disposer unregisters handler if it has not yet run.
	OnCancelled(handler func()) (dispose func())
}

type token struct {
	mu        sync.Mutex
	cancelled bool
	listeners map[int]func()
	nextID    int
}

func newToken() *token {
	return &token{listeners: make(map[int]func())}
}

// preCancelled is the shared singleton returned by sources that were
// cancelled before their token was ever observed.
var preCancelled = &token{cancelled: true}

func (t *token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *token) OnCancelled(handler func()) (dispose func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		go handler() // "invoked immediately on the next scheduling tick"
		return func() {}
	}
	id := t.nextID
	t.nextID++
	t.listeners[id] = handler
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// fire cancels the token and schedules every registered listener exactly
// once. Safe to call more than once; only the first call has any effect.
func (t *token) fire() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	listeners := t.listeners
	t.listeners = nil
	t.mu.Unlock()

	for _, l := range listeners {
		go l()
	}
}
