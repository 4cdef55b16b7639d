package ackhandler

import (
	"time"

	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/util/logger"
)

// LossDetector is the timer-driven resend sweep: on every
// tick it walks the PacketBuffer, and for every entry older than the loss
// threshold it extracts the entry's ack-eliciting frames and hands them to
// FrameSender for retransmission under a fresh packet number, then retires
// the old entry.
type LossDetector struct {
	buffer         *PacketBuffer
	sender         FrameSender
	state          ConnectionState
	lossThresholdNs int64

	handle SchedulerHandle
}

// NewLossDetector constructs a LossDetector and immediately registers its
// sweep with sched at the given period. lossThreshold is how long a packet may sit unacked
// before it is declared lost.
func NewLossDetector(buffer *PacketBuffer, sender FrameSender, state ConnectionState, now Ticker, sched Scheduler, lossThreshold, period time.Duration) *LossDetector {
	d := &LossDetector{
		buffer:          buffer,
		sender:          sender,
		state:           state,
		lossThresholdNs: lossThreshold.Nanoseconds(),
	}
	d.handle = sched.ScheduleAtFixedRate(func() {
		d.Tick(now.NowNanos())
	}, period, period)
	return d
}

// Stop cancels the sweep task. Safe to call once, at connection teardown.
func (d *LossDetector) Stop() {
	if d.handle != nil {
		d.handle.Cancel()
	}
}

// Tick runs one sweep at the given time, expressed as nanoseconds from the
// same clock the connection's Ticker produces. It is exported directly
// (rather than only reachable through the scheduled task) so tests can
// drive it deterministically without waiting on a real or fake scheduler.
func (d *LossDetector) Tick(nowNs int64) {
	for pn, entry := range d.buffer.entriesSnapshot() {
		if nowNs-entry.sentAtNs <= d.lossThresholdNs {
			continue
		}

		if _, ok := d.buffer.declareLost(pn); !ok {
			// Already retired by an ACK that arrived between the
			// snapshot and now; nothing to resend.
			continue
		}

		if d.state.KeysDiscarded(entry.level) {
			logger.Debugf("dropping packet %d (%s) without resend: keys discarded", pn, entry.level)
			continue
		}

		frames := ackElicitingFrames(entry.packet.Payload)
		if len(frames) == 0 {
			continue
		}

		if err := d.sender.Send(entry.level, frames); err != nil {
			logger.Warnf("resend of packet %d failed: %v", pn, err)
		}
	}
}

// ackElicitingFrames returns the subset of payload that is ack-eliciting,
// preserving order.
func ackElicitingFrames(payload wire.Payload) []wire.Frame {
	var out []wire.Frame
	for _, f := range payload {
		if wire.IsAckEliciting(f) {
			out = append(out, f)
		}
	}
	return out
}
