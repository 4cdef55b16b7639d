package wire

import (
	"bytes"
	"errors"
)

// AckBlock is a closed inclusive range of acknowledged packet numbers.
type AckBlock struct {
	Smallest int64
	Largest  int64
}

var errInvalidAckBlock = errors.New("wire: ack block smallest > largest")

// AckFrame is the core's ACK frame representation. Blocks are stored
// ascending (Encode reverses them to the wire's largest-first order),
// matching the ascending output of CoalesceAckBlocks.
type AckFrame struct {
	// Blocks is ordered ascending by Smallest; adjacent blocks are disjoint
	// and non-adjacent (a gap of at least one packet number separates them).
	Blocks []AckBlock
	// AckDelayMicros is the encoded (already-shifted-by-ack_delay_exponent)
	// delay field, as it appears on the wire.
	AckDelayMicros uint64
}

func (AckFrame) Type() FrameType { return FrameTypeAck }

// LargestAcked returns the greatest packet number covered by this frame.
// Blocks must be non-empty and ascending.
func (f *AckFrame) LargestAcked() int64 {
	return f.Blocks[len(f.Blocks)-1].Largest
}

// SmallestAcked returns the least packet number covered by this frame.
func (f *AckFrame) SmallestAcked() int64 {
	return f.Blocks[0].Smallest
}

// Validate checks the structural invariants the core requires before it
// trusts an incoming ACK frame: every block has smallest <= largest, and
// blocks are strictly ascending, disjoint and non-adjacent. It does not bound how large
// Largest may be — callers that need to reject a speculative ack beyond
// any packet number actually sent must check that separately, since
// AckFrame has no notion of the connection's send watermark.
func (f *AckFrame) Validate() error {
	if len(f.Blocks) == 0 {
		return errInvalidAckBlock
	}
	for i, b := range f.Blocks {
		if b.Smallest > b.Largest {
			return errInvalidAckBlock
		}
		if i > 0 && b.Smallest <= f.Blocks[i-1].Largest+1 {
			return errInvalidAckBlock
		}
	}
	return nil
}

// Encode writes the ACK frame in QUIC wire order: type byte, largest
// acknowledged, ack delay, block count, first range, then (gap, range)
// pairs, largest block first.
func (f *AckFrame) Encode(b *bytes.Buffer) {
	b.WriteByte(0x02)

	largest := f.Blocks[len(f.Blocks)-1].Largest
	WriteVarInt(b, uint64(largest))
	WriteVarInt(b, f.AckDelayMicros)
	WriteVarInt(b, uint64(len(f.Blocks)-1))

	firstRange := uint64(largest - f.Blocks[len(f.Blocks)-1].Smallest)
	WriteVarInt(b, firstRange)

	prevSmallest := f.Blocks[len(f.Blocks)-1].Smallest
	for i := len(f.Blocks) - 2; i >= 0; i-- {
		blk := f.Blocks[i]
		gap := uint64(prevSmallest - blk.Largest - 2)
		WriteVarInt(b, gap)
		WriteVarInt(b, uint64(blk.Largest-blk.Smallest))
		prevSmallest = blk.Smallest
	}
}

// DecodeAckFrame parses an ACK frame body (the type byte has already been
// consumed by the caller).
func DecodeAckFrame(r *bytes.Reader) (*AckFrame, error) {
	largestAcked, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	delay, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	numExtraBlocks, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	firstRange, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if firstRange > largestAcked {
		return nil, errInvalidAckBlock
	}

	blocks := make([]AckBlock, 0, numExtraBlocks+1)
	smallest := int64(largestAcked - firstRange)
	blocks = append(blocks, AckBlock{Smallest: smallest, Largest: int64(largestAcked)})

	for i := uint64(0); i < numExtraBlocks; i++ {
		gap, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		if smallest < int64(gap)+2 {
			return nil, errInvalidAckBlock
		}
		largest := smallest - int64(gap) - 2

		rangeLen, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		if int64(rangeLen) > largest {
			return nil, errInvalidAckBlock
		}
		smallest = largest - int64(rangeLen)
		blocks = append(blocks, AckBlock{Smallest: smallest, Largest: largest})
	}

	// blocks was built largest-first (wire order); the core wants ascending.
	ascending := make([]AckBlock, len(blocks))
	for i, b := range blocks {
		ascending[len(blocks)-1-i] = b
	}

	f := &AckFrame{Blocks: ascending, AckDelayMicros: delay}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// CoalesceAckBlocks implements the coalescing algorithm over packet numbers
// the caller has already sorted ascending (duplicates allowed; it does not
// sort): fold contiguous runs into closed ranges, and return a
// minimal-cardinality ascending, disjoint block list.
func CoalesceAckBlocks(sorted []int64) []AckBlock {
	if len(sorted) == 0 {
		return nil
	}

	blocks := make([]AckBlock, 0)
	lower, upper := sorted[0], sorted[0]

	for _, n := range sorted[1:] {
		switch {
		case n == upper+1:
			upper = n
		case n == upper:
			// duplicate, skip
		case n > upper+1:
			blocks = append(blocks, AckBlock{Smallest: lower, Largest: upper})
			lower, upper = n, n
		}
	}
	blocks = append(blocks, AckBlock{Smallest: lower, Largest: upper})

	return blocks
}
