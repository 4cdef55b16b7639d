// Package ackhandler implements the reliability core: PacketBuffer (the
// sent-packet registry), AckAggregator (the received-packet-number set),
// and LossDetector (the timer-driven resend sweep). The three collaborate
// through the small set of interfaces below.
package ackhandler

import (
	"time"

	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
)

// ConnectionState is the minimal view of connection-level state the core
// consults: whether data frames are currently admitted (handshake gating)
// and whether a given encryption level's keys have been discarded.
type ConnectionState interface {
	AdmitsDataFrames() bool
	KeysDiscarded(level protocol.EncryptionLevel) bool
}

// PipelineContext is the ingress-side collaborator the core consumes.
// Send enqueues a frame for synthesis into a new
// outbound packet at the given encryption level — the mechanism a
// standalone ACK uses. Next forwards an ingress packet past reliability to
// flow control / stream demux.
type PipelineContext interface {
	State() ConnectionState
	Send(level protocol.EncryptionLevel, f wire.Frame) error
	Next(pkt *wire.Packet)
}

// FrameSender is the egress-side collaborator.
// The loss detector hands it the ack-eliciting frames of a timed-out
// packet; FrameSender synthesizes a fresh outbound packet for them under a
// new packet number, at the same encryption level as the original.
type FrameSender interface {
	Send(level protocol.EncryptionLevel, frames []wire.Frame) error
}

// PacketSender is the transport collaborator. It is opaque to the core:
// Send returns a channel that is closed (with an error, or nil) once the
// datagram has been handed to the OS, modeling the "future".
type PacketSender interface {
	Send(pkt *wire.Packet) <-chan error
}

// Ticker is the injected monotonic clock. The core never reads the wall
// clock.
type Ticker interface {
	NowNanos() int64
}

// SchedulerHandle cancels a task registered with Scheduler.
type SchedulerHandle interface {
	Cancel()
}

// Scheduler runs a task at a fixed rate. LossDetector registers exactly
// one task at construction.
type Scheduler interface {
	ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) SchedulerHandle
}
