package pipeline

import (
	"time"

	"quicore.dev/quicore/internal/ackhandler"
)

// WallClock is the production ackhandler.Ticker: real monotonic time, via
// time.Now's monotonic reading, as nanoseconds since package init. Tests use a fake instead (see
// internal/ackhandler's test files) so the same assertions don't depend
// on wall-clock jitter.
type WallClock struct{}

// clockStart anchors WallClock readings; time.Since uses the monotonic
// reading carried by both values.
var clockStart = time.Now()

func (WallClock) NowNanos() int64 { return int64(time.Since(clockStart)) }

// RealScheduler is the production ackhandler.Scheduler, built on
// time.AfterFunc to schedule ACK timeouts at a fixed rate.
type RealScheduler struct{}

func (RealScheduler) ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) ackhandler.SchedulerHandle {
	h := &timerHandle{period: period, task: task}
	h.timer = time.AfterFunc(initialDelay, h.fire)
	return h
}

type timerHandle struct {
	timer   *time.Timer
	period  time.Duration
	task    func()
	stopped bool
}

func (h *timerHandle) fire() {
	if h.stopped {
		return
	}
	h.task()
	if !h.stopped {
		h.timer.Reset(h.period)
	}
}

func (h *timerHandle) Cancel() {
	h.stopped = true
	h.timer.Stop()
}
