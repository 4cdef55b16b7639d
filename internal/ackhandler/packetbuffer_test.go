package ackhandler

import (
	"testing"

	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
)

// TestDontAckOnlyAcks checks that a packet carrying only an ACK frame
// never triggers a send, but a subsequent ack-eliciting packet flushes a
// range covering both packet numbers.
func TestDontAckOnlyAcks(t *testing.T) {
	agg := NewAckAggregator(3)
	buf := NewPacketBuffer(agg)
	ctx := newFakeCtx()
	ticker := &fakeTicker{}
	sender := &fakeSender{}

	// Establish a watermark covering packet 8 so the incoming ack below
	// isn't rejected as claiming a packet number never sent.
	<-buf.BeforeSend(ticker, shortPacket(8, protocol.Encryption1RTT, &wire.PingFrame{}), sender)

	ackOnly := shortPacket(1, protocol.Encryption1RTT, &wire.AckFrame{
		Blocks: []wire.AckBlock{{Smallest: 7, Largest: 8}},
	})
	if err := buf.OnReceive(ackOnly, ticker, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.sent) != 0 {
		t.Fatalf("an ack-only packet must never trigger a send, got %d", len(ctx.sent))
	}
	if len(buf.snapshot()) != 0 {
		t.Fatalf("expected empty buffer, got %d entries", len(buf.snapshot()))
	}

	ping := shortPacket(2, protocol.Encryption1RTT, &wire.PingFrame{})
	if err := buf.OnReceive(ping, ticker, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(ctx.sent))
	}

	ack, ok := ctx.sent[0].(*wire.AckFrame)
	if !ok {
		t.Fatalf("expected an AckFrame, got %T", ctx.sent[0])
	}
	want := []wire.AckBlock{{Smallest: 1, Largest: 2}}
	if !blocksEqual(ack.Blocks, want) {
		t.Fatalf("blocks = %v, want %v", ack.Blocks, want)
	}
}

// TestSendThenAck checks that acking a buffered packet retires it and
// advances LargestAcked.
func TestSendThenAck(t *testing.T) {
	agg := NewAckAggregator(3)
	buf := NewPacketBuffer(agg)
	ctx := newFakeCtx()
	ticker := &fakeTicker{}
	sender := &fakeSender{}

	outgoing := shortPacket(2, protocol.Encryption1RTT, &wire.PingFrame{})
	<-buf.BeforeSend(ticker, outgoing, sender)

	if _, ok := buf.snapshot()[2]; !ok {
		t.Fatalf("expected packet 2 to be buffered after before_send")
	}

	incoming := shortPacket(3, protocol.Encryption1RTT, &wire.AckFrame{
		Blocks: []wire.AckBlock{{Smallest: 2, Largest: 2}},
	})
	if err := buf.OnReceive(incoming, ticker, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(buf.snapshot()) != 0 {
		t.Fatalf("expected buffer empty after ack, got %d entries", len(buf.snapshot()))
	}
	if buf.LargestAcked() != 2 {
		t.Fatalf("LargestAcked = %d, want 2", buf.LargestAcked())
	}
}

// TestIdempotentAckProcessing checks that redelivering the same ACK is a
// no-op: LargestAcked and buffer state don't move, and the ack listener
// fires exactly once for the packet number it actually retired.
func TestIdempotentAckProcessing(t *testing.T) {
	agg := NewAckAggregator(3)
	buf := NewPacketBuffer(agg)
	ctx := newFakeCtx()
	ticker := &fakeTicker{}
	sender := &fakeSender{}

	outgoing := shortPacket(5, protocol.Encryption1RTT, &wire.PingFrame{})
	<-buf.BeforeSend(ticker, outgoing, sender)

	var notified int
	ch := buf.AckListener().Subscribe()
	done := make(chan struct{})
	go func() {
		for range ch {
			notified++
		}
		close(done)
	}()

	ack := shortPacket(6, protocol.Encryption1RTT, &wire.AckFrame{
		Blocks: []wire.AckBlock{{Smallest: 5, Largest: 5}},
	})

	if err := buf.OnReceive(ack, ticker, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstLargest := buf.LargestAcked()
	firstSnapshot := len(buf.snapshot())

	// Re-deliver the identical ACK (e.g. a retransmitted ACK datagram).
	ack2 := shortPacket(7, protocol.Encryption1RTT, &wire.AckFrame{
		Blocks: []wire.AckBlock{{Smallest: 5, Largest: 5}},
	})
	if err := buf.OnReceive(ack2, ticker, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.LargestAcked() != firstLargest {
		t.Fatalf("LargestAcked changed on redundant ack: %d vs %d", buf.LargestAcked(), firstLargest)
	}
	if len(buf.snapshot()) != firstSnapshot {
		t.Fatalf("buffer state changed on redundant ack")
	}

	// Drain the async listener before counting.
	buf.ackListener.ClearObservers()
	close(ch)
	<-done
	if notified != 1 {
		t.Fatalf("ackListener invoked %d times, want exactly once", notified)
	}
}

// TestLargestAckedMonotonic checks that LargestAcked never decreases as
// ACKs covering lower and then higher packet numbers arrive out of order.
func TestLargestAckedMonotonic(t *testing.T) {
	agg := NewAckAggregator(3)
	buf := NewPacketBuffer(agg)
	ctx := newFakeCtx()
	ticker := &fakeTicker{}
	sender := &fakeSender{}

	// Establish a watermark covering every packet number acked below.
	<-buf.BeforeSend(ticker, shortPacket(4, protocol.Encryption1RTT, &wire.PingFrame{}), sender)

	sequence := []wire.AckBlock{{Smallest: 1, Largest: 3}, {Smallest: 1, Largest: 2}, {Smallest: 4, Largest: 4}}
	var last protocol.PacketNumber = protocol.InvalidPacketNumber
	for i, block := range sequence {
		pkt := shortPacket(int64(100+i), protocol.Encryption1RTT, &wire.AckFrame{Blocks: []wire.AckBlock{block}})
		if err := buf.OnReceive(pkt, ticker, ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.LargestAcked() < last {
			t.Fatalf("LargestAcked decreased: %d -> %d", last, buf.LargestAcked())
		}
		last = buf.LargestAcked()
	}
	if last != 4 {
		t.Fatalf("final LargestAcked = %d, want 4", last)
	}
}

// TestRejectsAckBeyondHighestSent checks that an ACK claiming a packet
// number this side never sent is rejected as a protocol violation rather
// than accepted and expanded, which for a huge Largest would otherwise
// walk billions of packet numbers under the connection lock.
func TestRejectsAckBeyondHighestSent(t *testing.T) {
	agg := NewAckAggregator(3)
	buf := NewPacketBuffer(agg)
	ctx := newFakeCtx()
	ticker := &fakeTicker{}
	sender := &fakeSender{}

	<-buf.BeforeSend(ticker, shortPacket(2, protocol.Encryption1RTT, &wire.PingFrame{}), sender)

	forged := shortPacket(1, protocol.Encryption1RTT, &wire.AckFrame{
		Blocks: []wire.AckBlock{{Smallest: 0, Largest: 1 << 40}},
	})
	err := buf.OnReceive(forged, ticker, ctx)
	if err == nil {
		t.Fatalf("expected an error acking a packet number never sent")
	}
	if _, ok := err.(*wire.ProtocolViolationError); !ok {
		t.Fatalf("expected a ProtocolViolationError, got %T", err)
	}
}

func blocksEqual(a, b []wire.AckBlock) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
