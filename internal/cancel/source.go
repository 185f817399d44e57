// file: internal/cancel/source.go
package cancel

import (
	"context"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/dkoosis/rpcwire/internal/logging"
)

type sourceState string

const (
	stateUncancelled sourceState = "uncancelled"
	stateCancelled   sourceState = "cancelled"
	stateDisposed    sourceState = "disposed"
)

type sourceTrigger string

const (
	triggerCancel  sourceTrigger = "cancel"
	triggerDispose sourceTrigger = "dispose"
)

// Source is the request-owning side of a cancellation signal.
// Its token is materialized lazily: a Source that is cancelled before Token
// is ever called hands out the shared preCancelled singleton instead of
// allocating its own.
type Source struct {
	mu      sync.Mutex
	machine *stateless.StateMachine
	tok     *token
	log     logging.Logger
}

// NewSource builds an uncancelled Source.
func NewSource() *Source {
	s := &Source{log: logging.GetLogger("cancel.source")}
	s.machine = stateless.NewStateMachine(stateUncancelled)

	s.machine.Configure(stateUncancelled).
		Permit(triggerCancel, stateCancelled).
		Permit(triggerDispose, stateDisposed)

	s.machine.Configure(stateCancelled).
		OnEntry(func(_ context.Context, _ ...any) error {
			if s.tok != nil {
				s.tok.fire()
			}
			return nil
		}).
		Permit(triggerDispose, stateDisposed)

	s.machine.Configure(stateDisposed).
		Ignore(triggerCancel).
		Ignore(triggerDispose)

	return s
}

// Token returns the observer handle for this source, materializing it on
// first call. If the source was already cancelled, the returned token is the
// shared pre-cancelled singleton rather than a fresh one.
func (s *Source) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok != nil {
		return s.tok
	}
	if s.machine.MustState() == stateCancelled {
		return preCancelled
	}
	s.tok = newToken()
	return s.tok
}

// Cancel fires the token, idempotently. Safe to call from any goroutine.
func (s *Source) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.MustState() != stateUncancelled {
		return
	}
	if err := s.machine.Fire(triggerCancel); err != nil {
		s.log.Warn("cancel fire rejected", "error", err)
	}
}

// Dispose retires the source. Further Cancel calls are no-ops.
func (s *Source) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.Fire(triggerDispose); err != nil {
		s.log.Warn("dispose fire rejected", "error", err)
	}
}

// IsCancelled reports whether the source has fired, without materializing a
// token.
func (s *Source) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.MustState() == stateCancelled
}
