package flowcontrol

import (
	"testing"

	"quicore.dev/quicore/internal/wire"
)

func TestAdmitWithinLimits(t *testing.T) {
	c := NewController(100, 50)

	if err := c.Admit(&wire.StreamFrame{StreamID: 1, Offset: 0, Data: make([]byte, 30)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.ConsumedConnection(); got != 30 {
		t.Fatalf("consumed = %d, want 30", got)
	}
}

func TestAdmitRejectsStreamOverLimit(t *testing.T) {
	c := NewController(1000, 50)

	if err := c.Admit(&wire.StreamFrame{StreamID: 1, Offset: 0, Data: make([]byte, 60)}); err == nil {
		t.Fatalf("expected a stream flow control violation")
	}
	if got := c.ConsumedConnection(); got != 0 {
		t.Fatalf("a rejected frame must not be charged, consumed = %d", got)
	}
}

func TestAdmitRejectsConnectionOverLimit(t *testing.T) {
	c := NewController(40, 1000)

	if err := c.Admit(&wire.StreamFrame{StreamID: 1, Offset: 0, Data: make([]byte, 30)}); err != nil {
		t.Fatalf("unexpected error on first frame: %v", err)
	}
	if err := c.Admit(&wire.StreamFrame{StreamID: 2, Offset: 0, Data: make([]byte, 20)}); err == nil {
		t.Fatalf("expected a connection-level flow control violation")
	}
	if got := c.ConsumedConnection(); got != 30 {
		t.Fatalf("the rejected second frame must leave consumed at 30, got %d", got)
	}
}

// TestAdmitRetransmissionIsIdempotent covers a STREAM frame re-delivering
// bytes already charged at a lower offset: re-sending [0,30) after [0,30)
// was already admitted must not double-charge.
func TestAdmitRetransmissionIsIdempotent(t *testing.T) {
	c := NewController(100, 100)

	frame := &wire.StreamFrame{StreamID: 1, Offset: 0, Data: make([]byte, 30)}
	if err := c.Admit(frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Admit(frame); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if got := c.ConsumedConnection(); got != 30 {
		t.Fatalf("redelivering the same range must not double-charge, consumed = %d", got)
	}
}
