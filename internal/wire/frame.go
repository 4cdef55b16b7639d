package wire

// FrameType tags the closed set of frame variants the core understands.
// New wire frame types are out of scope: the set is closed and known, per
// variant-dispatch design note.
type FrameType uint8

const (
	FrameTypePadding FrameType = iota
	FrameTypePing
	FrameTypeAck
	FrameTypeCrypto
	FrameTypeStream
	FrameTypeResetStream
	FrameTypeConnectionClose
	// FrameTypeOpaque covers any wire frame type the core does not need to
	// interpret, so an unrecognized-but-harmless frame still round-trips.
	FrameTypeOpaque
)

func (t FrameType) String() string {
	switch t {
	case FrameTypePadding:
		return "PADDING"
	case FrameTypePing:
		return "PING"
	case FrameTypeAck:
		return "ACK"
	case FrameTypeCrypto:
		return "CRYPTO"
	case FrameTypeStream:
		return "STREAM"
	case FrameTypeResetStream:
		return "RESET_STREAM"
	case FrameTypeConnectionClose:
		return "CONNECTION_CLOSE"
	default:
		return "OPAQUE"
	}
}

// Frame is the tagged-variant interface every payload element implements.
// Type() reports the variant tag; per-variant fields are reached through a
// type assertion or type switch on the concrete frame.
type Frame interface {
	Type() FrameType
}

// PingFrame carries no data; it exists solely to elicit an ACK.
type PingFrame struct{}

func (PingFrame) Type() FrameType { return FrameTypePing }

// PaddingFrame carries no data and is never ack-eliciting.
type PaddingFrame struct{}

func (PaddingFrame) Type() FrameType { return FrameTypePadding }

// CryptoFrame carries handshake bytes at a byte offset in the CRYPTO stream.
type CryptoFrame struct {
	Offset uint64
	Data   []byte
}

func (CryptoFrame) Type() FrameType { return FrameTypeCrypto }

// StreamFrame carries application bytes for one stream.
type StreamFrame struct {
	StreamID uint64
	Offset   uint64
	Fin      bool
	Data     []byte
}

func (StreamFrame) Type() FrameType { return FrameTypeStream }

// ResetStreamFrame abruptly terminates a stream.
type ResetStreamFrame struct {
	StreamID  uint64
	ErrorCode uint16
	FinalSize uint64
}

func (ResetStreamFrame) Type() FrameType { return FrameTypeResetStream }

// ConnectionCloseFrame signals connection teardown, application- or
// transport-level.
type ConnectionCloseFrame struct {
	IsApplicationLevel bool
	ErrorCode          uint16
	TriggeringFrame    FrameType // only meaningful when !IsApplicationLevel
	Reason             string
}

func (ConnectionCloseFrame) Type() FrameType { return FrameTypeConnectionClose }

// OpaqueFrame is any frame the core doesn't need to interpret; it passes
// through unmodified.
type OpaqueFrame struct {
	RawType uint64
	Raw     []byte
}

func (OpaqueFrame) Type() FrameType { return FrameTypeOpaque }

// IsAckEliciting reports whether f obliges the peer to respond with an ACK.
// ACK, PADDING and CONNECTION_CLOSE are the only non-eliciting variants;
// everything else (including unrecognized/opaque frames) elicits an ack,
// matching the GLOSSARY definition.
func IsAckEliciting(f Frame) bool {
	switch f.Type() {
	case FrameTypeAck, FrameTypePadding, FrameTypeConnectionClose:
		return false
	default:
		return true
	}
}

// PayloadAckEliciting reports whether any frame in the payload is
// ack-eliciting.
func PayloadAckEliciting(frames []Frame) bool {
	for _, f := range frames {
		if IsAckEliciting(f) {
			return true
		}
	}
	return false
}

// PayloadOnlyAckOrPadding reports whether every frame in the payload is an
// ACK or PADDING frame — the "acks don't elicit acks" case.
func PayloadOnlyAckOrPadding(frames []Frame) bool {
	for _, f := range frames {
		if t := f.Type(); t != FrameTypeAck && t != FrameTypePadding {
			return false
		}
	}
	return true
}
