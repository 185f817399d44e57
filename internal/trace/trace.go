// Package trace implements connection-wide diagnostic tracing: a logging
// level, an optional peer-facing $/setTrace notification, and a
// token-addressed one-way progress subscription registry.
// file: internal/trace/trace.go
package trace

import (
	"encoding/json"
	"sync"

	"github.com/dkoosis/rpcwire/internal/logging"
)

// Level is the connection-wide trace verbosity.
type Level int

const (
	Off Level = iota
	Messages
	Verbose
)

// Tracer receives formatted trace lines. A connection with no tracer
// installed emits no trace lines at any Level.
type Tracer interface {
	Log(message string, data any)
}

// LoggerTracer adapts a logging.Logger into a Tracer.
type LoggerTracer struct{ Log_ logging.Logger }

func (l LoggerTracer) Log(message string, data any) {
	if data != nil {
		l.Log_.Info(message, "data", data)
	} else {
		l.Log_.Info(message)
	}
}

// State bundles the current trace configuration for a connection.
type State struct {
	mu              sync.RWMutex
	level           Level
	tracer          Tracer
	sendNotification bool
}

func NewState() *State {
	return &State{level: Off}
}

// Set configures the trace level, the sink, and whether a $/setTrace
// notification should be emitted to the peer when the level changes.
func (s *State) Set(level Level, tracer Tracer, sendNotification bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	s.tracer = tracer
	s.sendNotification = sendNotification
}

func (s *State) Level() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

func (s *State) ShouldNotifyPeer() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sendNotification
}

// Log emits message at Messages level, and additionally includes data when
// the level is Verbose: data is attached whenever the level is Verbose, with
// no further filtering by message kind. With level Off or no tracer
// installed it emits nothing.
func (s *State) Log(message string, verboseData any) {
	s.mu.RLock()
	level, tracer := s.level, s.tracer
	s.mu.RUnlock()

	if level == Off || tracer == nil {
		return
	}
	if level == Verbose {
		tracer.Log(message, verboseData)
		return
	}
	tracer.Log(message, nil)
}

// ForwardPeerTrace delivers a $/logTrace payload received from the peer to
// the configured tracer, independent of the local trace level: the level
// gates what this side emits about its own traffic, not whether a peer's own
// trace lines reach the sink. A connection with no tracer installed drops the
// payload.
func (s *State) ForwardPeerTrace(message string, data any) {
	s.mu.RLock()
	tracer := s.tracer
	s.mu.RUnlock()
	if tracer == nil {
		return
	}
	tracer.Log(message, data)
}

// ProgressHandler receives a decoded progress value for a subscribed token.
type ProgressHandler func(raw json.RawMessage)

// Registry routes $/progress notifications to subscribers keyed by an opaque
// token. Delivery is best-effort: a notification for an
// unregistered token is silently dropped.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]ProgressHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ProgressHandler)}
}

func (r *Registry) On(token string, h ProgressHandler) (dispose func()) {
	r.mu.Lock()
	r.handlers[token] = h
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.handlers, token)
		r.mu.Unlock()
	}
}

// Dispatch routes an inbound $/progress payload. Missing token is a no-op.
func (r *Registry) Dispatch(token string, raw json.RawMessage) {
	r.mu.Lock()
	h, ok := r.handlers[token]
	r.mu.Unlock()
	if ok {
		h(raw)
	}
}
