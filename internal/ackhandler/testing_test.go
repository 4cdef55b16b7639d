package ackhandler

import (
	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
)

// fakeTicker is an injectable clock for deterministic ack-delay and
// loss-detection assertions.
type fakeTicker struct{ nowNs int64 }

func (f *fakeTicker) NowNanos() int64 { return f.nowNs }

// fakeState is a minimal ConnectionState stub; tests flip admitsData
// directly rather than driving a real handshake.
type fakeState struct {
	admitsData bool
	discarded  map[protocol.EncryptionLevel]bool
}

func newFakeState() *fakeState {
	return &fakeState{admitsData: true, discarded: make(map[protocol.EncryptionLevel]bool)}
}

func (s *fakeState) AdmitsDataFrames() bool { return s.admitsData }
func (s *fakeState) KeysDiscarded(level protocol.EncryptionLevel) bool {
	return s.discarded[level]
}

// fakeCtx is a PipelineContext that records every Send and Next call so
// tests can assert on them directly.
type fakeCtx struct {
	state      *fakeState
	sent       []wire.Frame
	forwarded  []*wire.Packet
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{state: newFakeState()}
}

func (c *fakeCtx) State() ConnectionState { return c.state }

func (c *fakeCtx) Send(level protocol.EncryptionLevel, f wire.Frame) error {
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeCtx) Next(pkt *wire.Packet) {
	c.forwarded = append(c.forwarded, pkt)
}

// fakeSender records every packet handed to it and reports success
// immediately, modeling an always-succeeding transport.
type fakeSender struct {
	sent []*wire.Packet
}

func (s *fakeSender) Send(pkt *wire.Packet) <-chan error {
	s.sent = append(s.sent, pkt)
	ch := make(chan error, 1)
	ch <- nil
	close(ch)
	return ch
}

// fakeFrameSender records every resend LossDetector hands it.
type fakeFrameSender struct {
	calls []struct {
		level  protocol.EncryptionLevel
		frames []wire.Frame
	}
}

func (s *fakeFrameSender) Send(level protocol.EncryptionLevel, frames []wire.Frame) error {
	s.calls = append(s.calls, struct {
		level  protocol.EncryptionLevel
		frames []wire.Frame
	}{level, frames})
	return nil
}

func shortPacket(pn int64, level protocol.EncryptionLevel, frames ...wire.Frame) *wire.Packet {
	return &wire.Packet{
		Header:  wire.Header{Type: wire.PacketTypeShort, Number: pn},
		Payload: wire.Payload(frames),
		Level:   level,
	}
}
