// Package pipeline wires PacketBuffer, AckAggregator, and LossDetector
// together into Connection, the instance ingress and egress traffic for
// one peer actually flows through. Connection is an explicit instance
// rather than package-level state, so multiple connections, or multiple
// independently-clocked test connections, can coexist in one process.
package pipeline

import (
	"sync"

	"quicore.dev/quicore/config"
	"quicore.dev/quicore/internal/ackhandler"
	"quicore.dev/quicore/internal/connstate"
	"quicore.dev/quicore/internal/flowcontrol"
	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/util/logger"
)

// StreamHandler is invoked for every STREAM frame that survives flow
// control, in packet order.
type StreamHandler func(f *wire.StreamFrame)

// Connection is one peer's view of the reliability core: it owns the
// PacketBuffer/AckAggregator/LossDetector triple and serializes every
// ingress packet, egress send, and loss-detection tick behind a single
// mutex.
type Connection struct {
	mu sync.Mutex

	cfg   config.Config
	state *connstate.State
	now   ackhandler.Ticker

	buffer     *ackhandler.PacketBuffer
	aggregator *ackhandler.AckAggregator
	detector   *ackhandler.LossDetector
	flow       *flowcontrol.Controller

	sender  ackhandler.PacketSender
	onData  StreamHandler

	destCID, srcCID wire.ConnectionID
	nextPacketNum   int64
	currentLevel    protocol.EncryptionLevel
}

// NewConnection constructs a Connection and starts its loss-detection
// sweep. sched is the real scheduler; Connection wraps it so the sweep
// always runs under the same mutex as Receive/Send.
func NewConnection(cfg config.Config, state *connstate.State, now ackhandler.Ticker, sched ackhandler.Scheduler, sender ackhandler.PacketSender, destCID, srcCID wire.ConnectionID, onData StreamHandler) *Connection {
	c := &Connection{
		cfg:          cfg,
		state:        state,
		now:          now,
		flow:         flowcontrol.NewController(1<<20, 1<<18),
		sender:       sender,
		onData:       onData,
		destCID:      destCID,
		srcCID:       srcCID,
		currentLevel: protocol.EncryptionInitial,
	}

	c.aggregator = ackhandler.NewAckAggregator(cfg.AckDelayExponent())
	c.buffer = ackhandler.NewPacketBuffer(c.aggregator)
	c.detector = ackhandler.NewLossDetector(c.buffer, frameSenderAdapter{c}, state, now, &lockingScheduler{inner: sched, mu: &c.mu}, cfg.LossThreshold(), cfg.LossDetectionPeriod())

	return c
}

// SetLevel changes the encryption level new outbound packets are tagged
// with, called by the handshake state machine as it advances.
func (c *Connection) SetLevel(level protocol.EncryptionLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentLevel = level
}

// AckListener exposes the buffer's ack notifications for callers that
// want to know when a specific packet number has been acknowledged.
func (c *Connection) AckListener() *ackhandlerAckListener {
	return &ackhandlerAckListener{c: c}
}

// ackhandlerAckListener is a thin accessor so callers don't need to import
// internal/ackhandler just to Subscribe to ack notifications.
type ackhandlerAckListener struct{ c *Connection }

func (a *ackhandlerAckListener) Subscribe() chan protocol.PacketNumber {
	return a.c.buffer.AckListener().Subscribe()
}

// LargestAcked returns the connection's current LargestAcked watermark.
func (c *Connection) LargestAcked() protocol.PacketNumber {
	return c.buffer.LargestAcked()
}

// Receive is the ingress entry point: decode a datagram into pkt before
// calling this (transport.Endpoint does the decoding), then hand the
// result here. It serializes against Send and the loss-detector tick.
func (c *Connection) Receive(pkt *wire.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.buffer.OnReceive(pkt, c.now, c); err != nil {
		return c.handleProtocolError(err)
	}
	return nil
}

// State implements ackhandler.PipelineContext.
func (c *Connection) State() ackhandler.ConnectionState {
	return c.state
}

// Send implements ackhandler.PipelineContext: synthesize a standalone
// packet carrying exactly f and dispatch it through the buffer, so a
// standalone ACK takes the same before_send path as every other outbound
// packet. ACKs are never attached to other outbound packets.
func (c *Connection) Send(level protocol.EncryptionLevel, f wire.Frame) error {
	pkt := c.buildPacket(level, []wire.Frame{f})
	c.dispatch(pkt)
	return nil
}

// Next implements ackhandler.PipelineContext: deliver an ingress packet's
// application-visible frames past the reliability layer, to flow control
// and the stream handler. A STREAM or RESET_STREAM frame arriving before
// the handshake admits data frames is a fatal protocol violation, not
// something to drop and move past: it closes the connection the same way
// any other violation surfaced through Receive does.
func (c *Connection) Next(pkt *wire.Packet) {
	if !c.state.AdmitsDataFrames() {
		for _, f := range pkt.Payload {
			switch f.Type() {
			case wire.FrameTypeStream, wire.FrameTypeResetStream:
				c.handleProtocolError(&wire.ProtocolViolationError{
					Code:    wire.ErrProtocolViolation,
					Trigger: f.Type(),
					Reason:  "data frame received before handshake completion",
				})
				return
			}
		}
		return
	}

	for _, f := range pkt.Payload {
		sf, ok := f.(*wire.StreamFrame)
		if !ok {
			continue
		}
		if err := c.flow.Admit(sf); err != nil {
			logger.Warnf("%v", err)
			continue
		}
		if c.onData != nil {
			c.onData(sf)
		}
	}
}

// SendFrames sends frames in one outbound packet under a fresh packet
// number at the given level, holding the connection mutex so it
// serializes against Receive and the loss-detector tick.
func (c *Connection) SendFrames(level protocol.EncryptionLevel, frames []wire.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendFrames(level, frames)
}

// sendFrames is SendFrames for callers already holding c.mu. The loss
// detector's resends of a timed-out packet's ack-eliciting frames reach it
// through frameSenderAdapter, whose Send method would otherwise collide
// with PipelineContext's single-frame Send above.
func (c *Connection) sendFrames(level protocol.EncryptionLevel, frames []wire.Frame) error {
	pkt := c.buildPacket(level, frames)
	c.dispatch(pkt)
	return nil
}

// frameSenderAdapter adapts Connection.sendFrames to ackhandler.FrameSender.
// The sweep runs under lockingScheduler, which already holds c.mu.
type frameSenderAdapter struct{ c *Connection }

func (a frameSenderAdapter) Send(level protocol.EncryptionLevel, frames []wire.Frame) error {
	return a.c.sendFrames(level, frames)
}

func (c *Connection) buildPacket(level protocol.EncryptionLevel, frames []wire.Frame) *wire.Packet {
	pn := c.nextPacketNum
	c.nextPacketNum++

	pktType := wire.PacketTypeShort
	switch level {
	case protocol.EncryptionInitial:
		pktType = wire.PacketTypeInitial
	case protocol.EncryptionHandshake:
		pktType = wire.PacketTypeHandshake
	case protocol.Encryption0RTT:
		pktType = wire.PacketType0RTT
	}

	return &wire.Packet{
		Header: wire.Header{
			Type:    pktType,
			DestCID: c.destCID,
			SrcCID:  c.srcCID,
			Number:  pn,
		},
		Payload: wire.Payload(frames),
		Level:   level,
	}
}

// dispatch runs a packet through before_send, which buffers it if
// ack-eliciting, then hands it to the transport. Send errors are logged
// asynchronously rather than blocking the caller under the connection
// mutex.
func (c *Connection) dispatch(pkt *wire.Packet) {
	result := c.buffer.BeforeSend(c.now, pkt, c.sender)
	go func() {
		if err := <-result; err != nil {
			logger.Warnf("send of packet %d failed: %v", pkt.Header.Number, err)
		}
	}()
}

// handleProtocolError reacts to a protocol violation surfaced while
// processing an ingress packet: build and send a
// CONNECTION_CLOSE frame, then move the connection to PhaseClosed.
// CONNECTION_CLOSE is not ack-eliciting, so dispatching it here never
// re-enters the buffer it was raised from.
func (c *Connection) handleProtocolError(err error) error {
	violation, ok := err.(*wire.ProtocolViolationError)
	if !ok {
		return err
	}

	logger.Warnf("closing connection: %v", violation)

	closeFrame := &wire.ConnectionCloseFrame{
		IsApplicationLevel: false,
		ErrorCode:          uint16(violation.Code),
		TriggeringFrame:    violation.Trigger,
		Reason:             violation.Reason,
	}
	pkt := c.buildPacket(c.currentLevel, []wire.Frame{closeFrame})
	c.dispatch(pkt)

	c.state.SetPhase(connstate.PhaseClosed)
	c.detector.Stop()

	return violation
}

// Close sends an application-level CONNECTION_CLOSE and tears down the
// loss-detection sweep. Safe to call once.
func (c *Connection) Close(code uint16, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	closeFrame := &wire.ConnectionCloseFrame{
		IsApplicationLevel: true,
		ErrorCode:          code,
		Reason:             reason,
	}
	pkt := c.buildPacket(c.currentLevel, []wire.Frame{closeFrame})
	c.dispatch(pkt)

	c.state.SetPhase(connstate.PhaseClosed)
	c.detector.Stop()
}
