package wire

import "quicore.dev/quicore/internal/protocol"

// PacketType distinguishes the long-header packet types from the
// short-header (1-RTT) packet.
type PacketType uint8

const (
	PacketTypeInitial PacketType = iota
	PacketTypeHandshake
	PacketTypeRetry
	PacketType0RTT
	PacketTypeShort
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeInitial:
		return "Initial"
	case PacketTypeHandshake:
		return "Handshake"
	case PacketTypeRetry:
		return "Retry"
	case PacketType0RTT:
		return "0-RTT"
	case PacketTypeShort:
		return "Short"
	default:
		return "Unknown"
	}
}

// ConnectionID is an opaque connection identifier. A nil/empty ConnectionID
// models "not present" for the packet types that omit one; the core never
// synthesizes a destination id out of thin air.
type ConnectionID []byte

// Header is the immutable per-packet metadata the core needs: type,
// optional source/destination connection ids, and the packet number. Byte
// layout and varint-length encoding of the wire header are a collaborator's
// concern; the core only needs these logical fields.
type Header struct {
	Type   PacketType
	DestCID ConnectionID
	SrcCID  ConnectionID
	Number  int64
}

// Payload is an ordered sequence of frames.
type Payload []Frame

// AckEliciting reports whether the payload carries at least one
// ack-eliciting frame.
func (p Payload) AckEliciting() bool {
	return PayloadAckEliciting(p)
}

// OnlyAckOrPadding reports whether the payload is composed solely of ACK
// and/or PADDING frames.
func (p Payload) OnlyAckOrPadding() bool {
	return PayloadOnlyAckOrPadding(p)
}

// Packet is an immutable record of one transmitted or received packet:
// header plus payload, tagged with the encryption level it was (or will
// be) protected under.
type Packet struct {
	Header  Header
	Payload Payload
	Level   protocol.EncryptionLevel
}

// AckOnly constructs a short-header standalone ACK packet carrying a single
// ACK frame, addressed to destCID. Such a packet is not ack-eliciting, so
// PacketBuffer never buffers it. AckOnly does not check that destCID is
// non-empty.
func AckOnly(destCID ConnectionID, number int64, ack *AckFrame, level protocol.EncryptionLevel) *Packet {
	return &Packet{
		Header: Header{
			Type:    PacketTypeShort,
			DestCID: destCID,
			Number:  number,
		},
		Payload: Payload{ack},
		Level:   level,
	}
}
