package wire

import (
	"bytes"
	"testing"

	"quicore.dev/quicore/internal/protocol"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 63, 64, 16383, 16384, 1073741823, 1073741824, varIntMax8}

	for _, v := range values {
		var buf bytes.Buffer
		WriteVarInt(&buf, v)
		if buf.Len() != VarIntLen(v) {
			t.Fatalf("WriteVarInt(%d) wrote %d bytes, VarIntLen said %d", v, buf.Len(), VarIntLen(v))
		}

		r := bytes.NewReader(buf.Bytes())
		got, err := ReadVarInt(r)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("roundtrip(%d) = %d", v, got)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		&PaddingFrame{},
		&PingFrame{},
		&AckFrame{Blocks: []AckBlock{{Smallest: 1, Largest: 3}, {Smallest: 5, Largest: 5}}, AckDelayMicros: 42},
		&CryptoFrame{Offset: 10, Data: []byte("clienthello")},
		&StreamFrame{StreamID: 4, Offset: 0, Fin: true, Data: []byte("payload")},
		&ResetStreamFrame{StreamID: 4, ErrorCode: 1, FinalSize: 7},
		&ConnectionCloseFrame{IsApplicationLevel: false, ErrorCode: uint16(ErrProtocolViolation), TriggeringFrame: FrameTypeAck, Reason: "bad ack"},
		&ConnectionCloseFrame{IsApplicationLevel: true, ErrorCode: 0, Reason: "bye"},
	}

	for _, f := range frames {
		var buf bytes.Buffer
		EncodeFrame(&buf, f)

		got, err := DecodeFrame(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("DecodeFrame(%T): %v", f, err)
		}
		if got.Type() != f.Type() {
			t.Fatalf("roundtrip %T: type = %s, want %s", f, got.Type(), f.Type())
		}
	}
}

func TestPacketRoundTrip(t *testing.T) {
	pkt := &Packet{
		Header: Header{
			Type:    PacketTypeShort,
			DestCID: ConnectionID{1, 2, 3, 4},
			SrcCID:  ConnectionID{9, 9},
			Number:  12345,
		},
		Payload: Payload{
			&PingFrame{},
			&StreamFrame{StreamID: 1, Offset: 0, Data: []byte("hello")},
		},
		Level: protocol.Encryption1RTT,
	}

	var buf bytes.Buffer
	if err := EncodePacket(&buf, pkt); err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	got, err := DecodePacket(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}

	if got.Header.Type != pkt.Header.Type {
		t.Fatalf("type = %s, want %s", got.Header.Type, pkt.Header.Type)
	}
	if got.Header.Number != pkt.Header.Number {
		t.Fatalf("number = %d, want %d", got.Header.Number, pkt.Header.Number)
	}
	if !bytes.Equal(got.Header.DestCID, pkt.Header.DestCID) {
		t.Fatalf("destCID = %v, want %v", got.Header.DestCID, pkt.Header.DestCID)
	}
	if got.Level != pkt.Level {
		t.Fatalf("level = %s, want %s", got.Level, pkt.Level)
	}
	if len(got.Payload) != len(pkt.Payload) {
		t.Fatalf("payload len = %d, want %d", len(got.Payload), len(pkt.Payload))
	}
}

func TestCoalesceAckBlocksEmpty(t *testing.T) {
	if blocks := CoalesceAckBlocks(nil); blocks != nil {
		t.Fatalf("expected nil for empty input, got %v", blocks)
	}
}

func TestAckFrameValidateRejectsOverlap(t *testing.T) {
	f := &AckFrame{Blocks: []AckBlock{{Smallest: 1, Largest: 5}, {Smallest: 4, Largest: 6}}}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for overlapping blocks")
	}
}
