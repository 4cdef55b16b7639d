package wire

import (
	"bytes"
	"fmt"

	"quicore.dev/quicore/internal/protocol"
)

// EncodePacket serializes pkt's header and payload onto b. The format is
// this core's own wire convention (length-prefixed connection IDs, a
// varint packet number, then frames back to back) rather than a literal
// transcription of draft-18's packet-protection layer, which sits outside
// this core's scope.
func EncodePacket(b *bytes.Buffer, pkt *Packet) error {
	b.WriteByte(byte(pkt.Header.Type))
	b.WriteByte(byte(len(pkt.Header.DestCID)))
	b.Write(pkt.Header.DestCID)
	b.WriteByte(byte(len(pkt.Header.SrcCID)))
	b.Write(pkt.Header.SrcCID)
	WriteVarInt(b, uint64(pkt.Header.Number))
	b.WriteByte(byte(pkt.Level))

	for _, f := range pkt.Payload {
		EncodeFrame(b, f)
	}
	return nil
}

// DecodePacket parses a packet previously written by EncodePacket.
func DecodePacket(data []byte) (*Packet, error) {
	r := bytes.NewReader(data)

	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decode packet header: %w", err)
	}

	destLen, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decode dest connection id length: %w", err)
	}
	destCID := make([]byte, destLen)
	if _, err := r.Read(destCID); err != nil && destLen > 0 {
		return nil, fmt.Errorf("decode dest connection id: %w", err)
	}

	srcLen, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decode src connection id length: %w", err)
	}
	srcCID := make([]byte, srcLen)
	if _, err := r.Read(srcCID); err != nil && srcLen > 0 {
		return nil, fmt.Errorf("decode src connection id: %w", err)
	}

	number, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("decode packet number: %w", err)
	}

	levelByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decode encryption level: %w", err)
	}

	var payload Payload
	for r.Len() > 0 {
		f, err := DecodeFrame(r)
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		payload = append(payload, f)
	}

	return &Packet{
		Header: Header{
			Type:    PacketType(typeByte),
			DestCID: ConnectionID(destCID),
			SrcCID:  ConnectionID(srcCID),
			Number:  int64(number),
		},
		Payload: payload,
		Level:   protocol.EncryptionLevel(levelByte),
	}, nil
}
