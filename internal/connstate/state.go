// Package connstate tracks the connection-level state the reliability core
// consults but does not own: whether data frames are currently admitted,
// and which encryption levels have had their keys discarded. It implements
// ackhandler.ConnectionState.
package connstate

import (
	"sync"

	"quicore.dev/quicore/internal/protocol"
)

// Phase is the coarse connection lifecycle.
type Phase int

const (
	PhaseHandshaking Phase = iota
	PhaseEstablished
	PhaseDraining
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseHandshaking:
		return "HANDSHAKING"
	case PhaseEstablished:
		return "ESTABLISHED"
	case PhaseDraining:
		return "DRAINING"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// State is the single mutable record of connection lifecycle and
// per-level key state, shared (by reference) between the handshake state
// machine and the reliability core.
type State struct {
	mu sync.Mutex

	phase     Phase
	discarded map[protocol.EncryptionLevel]bool
}

// New constructs a State in PhaseHandshaking with no keys discarded.
func New() *State {
	return &State{
		phase:     PhaseHandshaking,
		discarded: make(map[protocol.EncryptionLevel]bool),
	}
}

// AdmitsDataFrames reports whether STREAM/RESET_STREAM frames may be
// accepted from the peer right now. Only an established connection admits
// application data; a draining or closed connection must not.
func (s *State) AdmitsDataFrames() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseEstablished
}

// KeysDiscarded reports whether level's keys have been dropped, meaning a
// packet protected under that level can no longer be retransmitted.
func (s *State) KeysDiscarded(level protocol.EncryptionLevel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded[level]
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase transitions the connection to phase. Called by the handshake
// state machine on completion, and by the pipeline on CONNECTION_CLOSE.
func (s *State) SetPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

// DiscardKeys marks level's keys as no longer available. Subsequent
// LossDetector sweeps drop rather than resend packets buffered under that
// level.
func (s *State) DiscardKeys(level protocol.EncryptionLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded[level] = true
}
