package ackhandler

import (
	"sync"

	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/util/logger"
	"quicore.dev/quicore/util/observer"
)

// bufferedPacket is the PacketBuffer's internal record: the packet as sent, the time it was sent, and the
// encryption level it was protected under.
type bufferedPacket struct {
	packet   *wire.Packet
	sentAtNs int64
	level    protocol.EncryptionLevel
}

// PacketBuffer is the sent-packet registry: it records every
// ack-eliciting outbound packet and retires entries on acknowledgment. It
// is safe for concurrent use, but expects all mutation to be
// serialized by the owning Connection's single critical section; the
// internal mutex here is a second line of defense, not a substitute.
type PacketBuffer struct {
	mu      sync.Mutex
	entries map[protocol.PacketNumber]bufferedPacket

	// largestAcked is the LargestAcked watermark: the maximum
	// packet number ever seen in any received ACK, monotonic.
	largestAcked protocol.PacketNumber

	// highestSent is the greatest packet number this side has ever handed
	// to before_send, ack-eliciting or not. An incoming ACK claiming a
	// larger packet number than this is necessarily lying.
	highestSent protocol.PacketNumber

	// ackListener is notified, at most once per packet number, when that
	// packet number is removed from the buffer because the peer acked it.
	ackListener *observer.Observable[protocol.PacketNumber]

	aggregator *AckAggregator
}

// NewPacketBuffer constructs an empty PacketBuffer wired to the given
// aggregator: OnReceive delegates every packet to it.
func NewPacketBuffer(aggregator *AckAggregator) *PacketBuffer {
	return &PacketBuffer{
		entries:      make(map[protocol.PacketNumber]bufferedPacket),
		largestAcked: protocol.InvalidPacketNumber,
		highestSent:  protocol.InvalidPacketNumber,
		ackListener:  observer.NewObservable[protocol.PacketNumber](8),
		aggregator:   aggregator,
	}
}

// AckListener returns the observable notified once per newly-acked packet
// number. Subscribe before packets that might be acked are sent.
func (b *PacketBuffer) AckListener() *observer.Observable[protocol.PacketNumber] {
	return b.ackListener
}

// LargestAcked returns the current LargestAcked watermark, or
// protocol.InvalidPacketNumber if no ACK has ever been received.
func (b *PacketBuffer) LargestAcked() protocol.PacketNumber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.largestAcked
}

// BeforeSend records a packet before handing it to the transport: if it
// carries any ack-eliciting frame, it is inserted into the buffer before
// being forwarded downstream, so a near-instant ack can never race ahead of
// the buffer write.
func (b *PacketBuffer) BeforeSend(now Ticker, pkt *wire.Packet, sender PacketSender) <-chan error {
	pn := protocol.PacketNumber(pkt.Header.Number)
	ackEliciting := pkt.Payload.AckEliciting()

	b.mu.Lock()
	if pn > b.highestSent {
		b.highestSent = pn
	}
	if ackEliciting {
		b.entries[pn] = bufferedPacket{
			packet:   pkt,
			sentAtNs: now.NowNanos(),
			level:    pkt.Level,
		}
	}
	b.mu.Unlock()

	if ackEliciting {
		logger.Tracef("buffered packet %d (%s) with %d frames", pkt.Header.Number, pkt.Level, len(pkt.Payload))
	}

	return sender.Send(pkt)
}

// OnReceive processes an inbound packet: for every ACK frame in the
// payload, remove each acknowledged packet number from the buffer at most
// once, advance LargestAcked with the maximum operator (monotonic
// regardless of whether the number was ever buffered), then delegate the
// packet to the aggregator and forward it upstream via ctx.Next.
func (b *PacketBuffer) OnReceive(pkt *wire.Packet, now Ticker, ctx PipelineContext) error {
	for _, f := range pkt.Payload {
		ack, ok := f.(*wire.AckFrame)
		if !ok {
			continue
		}
		if err := ack.Validate(); err != nil {
			return wire.NewMalformedAckError(err.Error())
		}
		if err := b.checkWatermark(ack); err != nil {
			return err
		}

		b.applyAck(ack)
	}

	if err := b.aggregator.OnReceivePacket(pkt, now, ctx); err != nil {
		return err
	}

	ctx.Next(pkt)
	return nil
}

// checkWatermark rejects an ACK frame claiming a packet number beyond the
// highest one this side has ever sent. Without this, a peer's speculative
// or forged ack (e.g. largest=2^40) would otherwise be structurally valid
// per Validate and reach applyAck unchecked.
func (b *PacketBuffer) checkWatermark(ack *wire.AckFrame) error {
	b.mu.Lock()
	highest := b.highestSent
	b.mu.Unlock()

	if protocol.PacketNumber(ack.LargestAcked()) > highest {
		return wire.NewMalformedAckError("acks a packet number beyond any ever sent")
	}
	return nil
}

// applyAck removes every buffered packet number covered by any block of
// ack, advances LargestAcked, and notifies the ack listener for each
// number actually removed. It walks the buffer's own (bounded) entries
// rather than expanding each block's range, since checkWatermark only
// bounds Largest by the highest packet number sent, not by anything small.
func (b *PacketBuffer) applyAck(ack *wire.AckFrame) {
	b.mu.Lock()
	if protocol.PacketNumber(ack.LargestAcked()) > b.largestAcked {
		b.largestAcked = protocol.PacketNumber(ack.LargestAcked())
	}

	var newlyAcked []protocol.PacketNumber
	for key := range b.entries {
		if !ackCovers(ack.Blocks, int64(key)) {
			continue
		}
		delete(b.entries, key)
		newlyAcked = append(newlyAcked, key)
	}
	b.mu.Unlock()

	for _, pn := range newlyAcked {
		b.ackListener.NotifyObservers(pn)
	}
}

// ackCovers reports whether pn falls within any of the given ascending,
// disjoint ack blocks.
func ackCovers(blocks []wire.AckBlock, pn int64) bool {
	for _, block := range blocks {
		if pn >= block.Smallest && pn <= block.Largest {
			return true
		}
	}
	return false
}

// declareLost removes pn from the buffer unconditionally, used by
// LossDetector once it has decided a packet timed out. It does not touch
// LargestAcked or notify the ack listener — a lost packet was not acked.
func (b *PacketBuffer) declareLost(pn protocol.PacketNumber) (bufferedPacket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[pn]
	if ok {
		delete(b.entries, pn)
	}
	return entry, ok
}

// discardSendFailure removes pn from the buffer because the transport
// reported the datagram could not be dispatched: fatal for the packet,
// removed without ack.
func (b *PacketBuffer) discardSendFailure(pn protocol.PacketNumber) {
	b.mu.Lock()
	delete(b.entries, pn)
	b.mu.Unlock()
}

// snapshot returns the current set of buffered packet numbers, for test
// assertions.
func (b *PacketBuffer) snapshot() map[protocol.PacketNumber]struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[protocol.PacketNumber]struct{}, len(b.entries))
	for pn := range b.entries {
		out[pn] = struct{}{}
	}
	return out
}

// entriesSnapshot returns a copy of the buffer's (pn -> sent-at, level)
// entries, used by LossDetector so it never iterates the live map while
// holding the lock across a resend call.
func (b *PacketBuffer) entriesSnapshot() map[protocol.PacketNumber]bufferedPacket {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[protocol.PacketNumber]bufferedPacket, len(b.entries))
	for pn, e := range b.entries {
		out[pn] = e
	}
	return out
}
