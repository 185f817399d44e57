// Package conn implements MessageConnection, the dispatch core
// tying every other component together: the lifecycle state machine, the
// request/response correlation table, the handler registries, cancellation
// propagation, and tracing.
// file: internal/conn/state.go
package conn

import (
	"context"

	"github.com/dkoosis/rpcwire/internal/fsm"
	"github.com/dkoosis/rpcwire/internal/logging"
)

const (
	StateNew        fsm.State = "new"
	StateListening   fsm.State = "listening"
	StateClosed      fsm.State = "closed"
	StateDisposed    fsm.State = "disposed"
)

const (
	eventListen fsm.Event = "listen"
	eventClose  fsm.Event = "close"
	eventDispose fsm.Event = "dispose"
)

// newLifecycle builds the New -> Listening -> Closed/Disposed state machine
// governing a connection's life.
func newLifecycle(log logging.Logger) fsm.FSM {
	m := fsm.NewFSM(StateNew, log)
	m.AddTransition(fsm.Transition{From: []fsm.State{StateNew}, Event: eventListen, To: StateListening})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateListening}, Event: eventClose, To: StateClosed})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateNew}, Event: eventDispose, To: StateDisposed})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateListening}, Event: eventDispose, To: StateDisposed})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateClosed}, Event: eventDispose, To: StateDisposed})
	if err := m.Build(); err != nil {
		log.Error("lifecycle fsm build failed", "error", err)
	}
	return m
}

func fireLifecycle(m fsm.FSM, event fsm.Event) error {
	return m.Transition(context.Background(), event, nil)
}
