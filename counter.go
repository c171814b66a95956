package fibertasking

import (
	"sync"
	"sync/atomic"
)

// waiter records a fiber parked on a counter: which fiber, what value it
// is waiting for, and whether it must resume on the worker it parked from.
// A fiber appears on at most one counter's waiter list at a time — it
// cannot call WaitForCounter again until it has been resumed, since
// WaitForCounter blocks its own goroutine.
type waiter struct {
	fiber      *fiber
	target     uint64
	pinned     bool
	workerHint int
}

// AtomicCounter is the wait-counter primitive: an atomic integer plus a
// small ordered list of waiters. Counters are bound to a scheduler only in
// the sense that they drive fibers back onto that scheduler's resumable
// queues; a counter's own lifetime is the caller's responsibility.
type AtomicCounter struct {
	sched   *Scheduler
	value   atomic.Uint64
	mu      sync.Mutex
	waiters []*waiter
}

// NewAtomicCounter creates a counter bound to s with the given initial
// value.
func NewAtomicCounter(s *Scheduler, initial uint64) *AtomicCounter {
	c := &AtomicCounter{sched: s}
	c.value.Store(initial)
	return c
}

// Load returns the counter's current value.
func (c *AtomicCounter) Load() uint64 { return c.value.Load() }

// add atomically applies delta — unsigned, so a decrement of n is passed
// as -n and relies on two's-complement wraparound — and wakes any waiters
// whose target the new value now satisfies.
func (c *AtomicCounter) add(delta uint64) uint64 {
	newVal := c.value.Add(delta)
	c.wake(newVal)
	return newVal
}

func (c *AtomicCounter) increment(n uint64) { c.add(n) }

func (c *AtomicCounter) decrement(n uint64) { c.add(-n) }

// wake moves every waiter whose target equals newVal from the counter to
// the appropriate resumable queue, in FIFO registration order:
// first-registered, first-resumed.
func (c *AtomicCounter) wake(newVal uint64) {
	c.mu.Lock()
	var matched []*waiter
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.target == newVal {
			matched = append(matched, w)
		} else {
			kept = append(kept, w)
		}
	}
	c.waiters = kept
	c.mu.Unlock()

	for _, w := range matched {
		if w.pinned {
			c.sched.resumeWaiter(w.fiber, w.pinned, w.workerHint)
		}
	}
	// The global resumable queue is LIFO, so unpinned waiters are pushed in
	// reverse to come off it in registration order.
	for i := len(matched) - 1; i >= 0; i-- {
		if w := matched[i]; !w.pinned {
			c.sched.resumeWaiter(w.fiber, w.pinned, w.workerHint)
		}
	}
}

// park registers w as a waiter unless the counter already equals w.target,
// in which case it registers nothing and reports alreadySatisfied. The check
// and the registration happen under c.mu, the lock wake also takes, so a
// concurrent add cannot slip between them. It is called by
// Scheduler.parkFiberOnCounter on the worker that received the fiber's
// toWait disposition.
func (c *AtomicCounter) park(w *waiter) (alreadySatisfied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value.Load() == w.target {
		return true
	}
	c.waiters = append(c.waiters, w)
	return false
}
