package wire

import (
	"bytes"
	"errors"
)

// Type bytes, per the QUIC frame type registry.
const (
	typeByPadding         = 0x00
	typeByPing            = 0x01
	typeByAck             = 0x02
	typeByAckECN          = 0x03
	typeByCrypto          = 0x06
	typeByResetStream     = 0x04
	typeByStreamBase      = 0x08
	typeByConnCloseTransp = 0x1c
	typeByConnCloseApp    = 0x1d
)

var errTruncatedFrame = errors.New("wire: truncated frame")

// EncodeFrame appends the wire encoding of f to b.
func EncodeFrame(b *bytes.Buffer, f Frame) {
	switch v := f.(type) {
	case *PaddingFrame:
		b.WriteByte(typeByPadding)
	case PaddingFrame:
		b.WriteByte(typeByPadding)
	case *PingFrame:
		b.WriteByte(typeByPing)
	case PingFrame:
		b.WriteByte(typeByPing)
	case *AckFrame:
		v.Encode(b)
	case *CryptoFrame:
		b.WriteByte(typeByCrypto)
		WriteVarInt(b, v.Offset)
		WriteVarInt(b, uint64(len(v.Data)))
		b.Write(v.Data)
	case *StreamFrame:
		typeByte := byte(typeByStreamBase)
		if v.Fin {
			typeByte |= 0x01
		}
		b.WriteByte(typeByte)
		WriteVarInt(b, v.StreamID)
		WriteVarInt(b, v.Offset)
		WriteVarInt(b, uint64(len(v.Data)))
		b.Write(v.Data)
	case *ResetStreamFrame:
		b.WriteByte(typeByResetStream)
		WriteVarInt(b, v.StreamID)
		WriteVarInt(b, uint64(v.ErrorCode))
		WriteVarInt(b, v.FinalSize)
	case *ConnectionCloseFrame:
		if v.IsApplicationLevel {
			b.WriteByte(typeByConnCloseApp)
		} else {
			b.WriteByte(typeByConnCloseTransp)
		}
		WriteVarInt(b, uint64(v.ErrorCode))
		if !v.IsApplicationLevel {
			WriteVarInt(b, uint64(v.TriggeringFrame))
		}
		reason := []byte(v.Reason)
		WriteVarInt(b, uint64(len(reason)))
		b.Write(reason)
	case *OpaqueFrame:
		WriteVarInt(b, v.RawType)
		b.Write(v.Raw)
	default:
		panic("wire: unknown frame variant")
	}
}

// DecodeFrame reads one frame from r.
func DecodeFrame(r *bytes.Reader) (Frame, error) {
	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case typeByte == typeByPadding:
		return &PaddingFrame{}, nil
	case typeByte == typeByPing:
		return &PingFrame{}, nil
	case typeByte == typeByAck || typeByte == typeByAckECN:
		if err := r.UnreadByte(); err != nil {
			return nil, err
		}
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return DecodeAckFrame(r)
	case typeByte == typeByCrypto:
		offset, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		n, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		data := make([]byte, n)
		if _, err := r.Read(data); err != nil {
			return nil, errTruncatedFrame
		}
		return &CryptoFrame{Offset: offset, Data: data}, nil
	case typeByte&0xf8 == typeByStreamBase:
		streamID, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		offset, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		n, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		data := make([]byte, n)
		if _, err := r.Read(data); err != nil {
			return nil, errTruncatedFrame
		}
		return &StreamFrame{StreamID: streamID, Offset: offset, Fin: typeByte&0x01 != 0, Data: data}, nil
	case typeByte == typeByResetStream:
		streamID, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		errCode, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		finalSize, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		return &ResetStreamFrame{StreamID: streamID, ErrorCode: uint16(errCode), FinalSize: finalSize}, nil
	case typeByte == typeByConnCloseTransp || typeByte == typeByConnCloseApp:
		errCode, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		var triggering uint64
		if typeByte == typeByConnCloseTransp {
			triggering, err = ReadVarInt(r)
			if err != nil {
				return nil, err
			}
		}
		n, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		reason := make([]byte, n)
		if _, err := r.Read(reason); err != nil {
			return nil, errTruncatedFrame
		}
		return &ConnectionCloseFrame{
			IsApplicationLevel: typeByte == typeByConnCloseApp,
			ErrorCode:          uint16(errCode),
			TriggeringFrame:    FrameType(triggering),
			Reason:             string(reason),
		}, nil
	default:
		return &OpaqueFrame{RawType: uint64(typeByte)}, nil
	}
}
