// Package handshake advances connstate.State in response to the CRYPTO
// frames exchanged during setup. It is a minimal collaborator: the actual
// TLS 1.3 key schedule is out of scope, leaving only the state transitions the reliability core needs to gate
// on (key discard, data-frame admission).
package handshake

import (
	"quicore.dev/quicore/internal/connstate"
	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/util/logger"
)

// Machine drives connstate.State through the Initial -> Handshake ->
// 1-RTT progression as CRYPTO frames are observed at each encryption
// level. It does not parse or validate CRYPTO frame contents; that is TLS
// 1.3's job, out of scope here.
type Machine struct {
	state *connstate.State
	perspective protocol.Perspective
}

// New constructs a Machine driving state on behalf of the given
// perspective.
func New(state *connstate.State, perspective protocol.Perspective) *Machine {
	return &Machine{state: state, perspective: perspective}
}

// OnCryptoFrame advances the handshake on receipt of a CRYPTO frame at the
// given level. Reaching Encryption1RTT completes the handshake and
// discards the Initial and Handshake keys (draft-18 key-discard rule);
// reaching that level for the first time moves the connection to
// PhaseEstablished.
func (m *Machine) OnCryptoFrame(level protocol.EncryptionLevel) {
	switch level {
	case protocol.Encryption1RTT:
		if m.state.Phase() == connstate.PhaseHandshaking {
			logger.Infof("handshake complete (%s)", m.perspective)
			m.state.SetPhase(connstate.PhaseEstablished)
			m.state.DiscardKeys(protocol.EncryptionInitial)
			m.state.DiscardKeys(protocol.EncryptionHandshake)
		}
	case protocol.EncryptionHandshake:
		logger.Debugf("handshake progressing to %s", level)
	case protocol.EncryptionInitial:
		// First flight; nothing to advance yet.
	}
}

// Abort marks the handshake as failed, transitioning to PhaseClosed
// without ever admitting data frames.
func (m *Machine) Abort(reason string) {
	logger.Warnf("handshake aborted: %s", reason)
	m.state.SetPhase(connstate.PhaseClosed)
}
