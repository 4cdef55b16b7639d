package pipeline

import (
	"sync"
	"time"

	"quicore.dev/quicore/internal/ackhandler"
)

// lockingScheduler wraps a Scheduler so every task it runs first takes mu.
// Connection uses it to enforce the single critical section: the
// loss-detector's periodic sweep must never run concurrently with an
// ingress Receive or an egress Send on the same connection.
type lockingScheduler struct {
	inner ackhandler.Scheduler
	mu    *sync.Mutex
}

func (s *lockingScheduler) ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) ackhandler.SchedulerHandle {
	return s.inner.ScheduleAtFixedRate(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		task()
	}, initialDelay, period)
}
