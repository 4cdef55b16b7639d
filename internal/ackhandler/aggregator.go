package ackhandler

import (
	"sort"
	"sync"

	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
)

// AckAggregator is the received-packet-number set: it
// folds arriving packet numbers into a PendingAckSet, coalesces them into
// AckBlocks, and decides when an ACK is owed back to the peer.
type AckAggregator struct {
	mu sync.Mutex

	pending map[int64]int64 // packet number -> arrival time (ns)

	ackDelayExponent uint8
}

// NewAckAggregator constructs an empty AckAggregator. ackDelayExponent is
// the connection's negotiated ack_delay_exponent,
// applied when encoding ack_delay_microseconds onto the wire.
func NewAckAggregator(ackDelayExponent uint8) *AckAggregator {
	return &AckAggregator{
		pending:          make(map[int64]int64),
		ackDelayExponent: ackDelayExponent,
	}
}

// Record folds pn into the pending set, idempotently, recording now as its
// arrival time the first time it is seen.
func (a *AckAggregator) Record(pn int64, nowNs int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[pn]; !ok {
		a.pending[pn] = nowNs
	}
}

// OnReceivePacket decides whether an inbound packet owes the peer an ACK.
// Every non-Initial packet number is recorded into the pending set
// regardless of whether it elicits an ack — a later flush must still be
// able to report it in a coalesced range. Only a payload containing at
// least one ack-eliciting frame (anything but ACK, PADDING or
// CONNECTION_CLOSE) triggers the flush itself: an
// Initial packet is never acked standalone, the handshake owns that
// cadence upstream.
func (a *AckAggregator) OnReceivePacket(pkt *wire.Packet, now Ticker, ctx PipelineContext) error {
	if pkt.Header.Type == wire.PacketTypeInitial {
		return nil
	}

	a.Record(pkt.Header.Number, now.NowNanos())

	if !pkt.Payload.AckEliciting() {
		return nil
	}
	return a.flush(pkt.Level, now, ctx)
}

// flush builds an AckFrame from every currently pending packet number and
// sends it through ctx.Send at the given encryption level, then clears the
// pending set it just reported.
func (a *AckAggregator) flush(level protocol.EncryptionLevel, now Ticker, ctx PipelineContext) error {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return nil
	}

	nums := make([]int64, 0, len(a.pending))
	var largestArrival int64
	var largestPn int64 = -1
	for pn, arrival := range a.pending {
		nums = append(nums, pn)
		if largestPn == -1 || pn > largestPn {
			largestPn = pn
			largestArrival = arrival
		}
	}
	a.pending = make(map[int64]int64)
	a.mu.Unlock()

	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	blocks := wire.CoalesceAckBlocks(nums)

	ack := &wire.AckFrame{
		Blocks:         blocks,
		AckDelayMicros: a.ackDelay(largestArrival, now),
	}

	return ctx.Send(level, ack)
}

// ackDelay computes the encoded ack delay for this flush: the elapsed
// microseconds since the largest pending packet number arrived (which is
// not necessarily the packet that triggered the flush), shifted right by
// ack_delay_exponent.
func (a *AckAggregator) ackDelay(arrivalNs int64, now Ticker) uint64 {
	elapsedNs := now.NowNanos() - arrivalNs
	if elapsedNs < 0 {
		elapsedNs = 0
	}
	elapsedMicros := uint64(elapsedNs / 1000)
	return elapsedMicros >> a.ackDelayExponent
}

// Pending returns a snapshot of the currently pending packet numbers, for
// test assertions.
func (a *AckAggregator) Pending() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int64, 0, len(a.pending))
	for pn := range a.pending {
		out = append(out, pn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
