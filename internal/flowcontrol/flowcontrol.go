// Package flowcontrol enforces per-connection and per-stream byte limits
// on incoming STREAM data. It is explicitly not congestion control
// — it bounds how much unread data a peer may have
// outstanding, nothing about send pacing or RTT estimation.
package flowcontrol

import (
	"fmt"
	"sync"

	"quicore.dev/quicore/internal/wire"
)

// Controller tracks consumed connection- and stream-level flow control
// credit against configured limits.
type Controller struct {
	mu sync.Mutex

	connLimit     uint64
	connConsumed  uint64
	streamLimit   uint64
	streamConsumed map[uint64]uint64
}

// NewController builds a Controller with the given connection-wide and
// per-stream byte limits.
func NewController(connLimit, streamLimit uint64) *Controller {
	return &Controller{
		connLimit:      connLimit,
		streamLimit:    streamLimit,
		streamConsumed: make(map[uint64]uint64),
	}
}

// ErrFlowControlViolation is returned when a STREAM frame would push a
// stream or the connection past its allotted credit.
type ErrFlowControlViolation struct {
	StreamID uint64
	Limit    uint64
	Would    uint64
}

func (e *ErrFlowControlViolation) Error() string {
	return fmt.Sprintf("flow control violation on stream %d: limit %d, would reach %d", e.StreamID, e.Limit, e.Would)
}

// Admit charges the bytes by which f raises its stream's highest received
// offset (Offset+len(Data)) against both the per-stream and
// connection-wide budgets, atomically: either both succeed, or neither is
// charged. Data below that offset is not charged again.
func (c *Controller) Admit(f *wire.StreamFrame) error {
	need := f.Offset + uint64(len(f.Data))

	c.mu.Lock()
	defer c.mu.Unlock()

	streamWould := max64(c.streamConsumed[f.StreamID], need)
	if streamWould > c.streamLimit {
		return &ErrFlowControlViolation{StreamID: f.StreamID, Limit: c.streamLimit, Would: streamWould}
	}

	delta := streamWould - c.streamConsumed[f.StreamID]
	connWould := c.connConsumed + delta
	if connWould > c.connLimit {
		return &ErrFlowControlViolation{StreamID: f.StreamID, Limit: c.connLimit, Would: connWould}
	}

	c.streamConsumed[f.StreamID] = streamWould
	c.connConsumed = connWould
	return nil
}

// ConsumedConnection returns total bytes charged against the connection
// limit so far.
func (c *Controller) ConsumedConnection() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connConsumed
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
