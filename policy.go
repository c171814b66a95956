package fibertasking

import (
	"runtime"
	"time"
)

// EmptyQueuePolicy selects what a worker does when it finds no ready task
// and no resumable fiber.
type EmptyQueuePolicy int

const (
	// Spin busy-loops rechecking the queues: lowest latency, highest CPU.
	Spin EmptyQueuePolicy = iota
	// Yield invokes the OS yield hint between checks.
	Yield
	// Sleep blocks on a semaphore released whenever work is enqueued.
	Sleep
)

// String implements fmt.Stringer.
func (p EmptyQueuePolicy) String() string {
	switch p {
	case Spin:
		return "Spin"
	case Yield:
		return "Yield"
	case Sleep:
		return "Sleep"
	default:
		return "Unknown"
	}
}

// sleepPollInterval bounds how long a Sleep-policy worker waits for a wake
// signal before rechecking the queues on its own, so a missed non-blocking
// send to wakeCh never stalls a worker indefinitely.
const sleepPollInterval = 2 * time.Millisecond

// idle applies the configured empty-queue policy for one iteration of a
// worker's loop that found nothing to do.
func (s *Scheduler) idle(w *worker) {
	switch s.cfg.EmptyQueuePolicy {
	case Yield:
		runtime.Gosched()
	case Sleep:
		select {
		case <-s.wakeCh:
		case <-time.After(sleepPollInterval):
		}
	default: // Spin
	}
}

// notifyWork releases the sleep semaphore; a no-op (never blocks) if it is
// already saturated with pending wake tokens, since that only happens when
// plenty of wake signals are already queued.
func (s *Scheduler) notifyWork() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}
