package fibertasking

import (
	"sync"
	"sync/atomic"
)

var fibtexIDs atomic.Uint64

// Fibtex is a fiber-aware mutex: ownership is tracked by fiber identity,
// not by goroutine or OS thread identity, and contention suspends the
// waiting fiber rather than blocking whichever worker happens to be
// driving it — the worker is freed to run other work.
type Fibtex struct {
	sched *Scheduler
	id    uint64
	owner atomic.Pointer[fiber]
	spin  uint32

	mu      sync.Mutex
	waiters []*fiber
}

// NewFibtex creates a fiber mutex bound to s with the given spin budget,
// used by LockSpin before it falls back to a blocking acquire.
func NewFibtex(s *Scheduler, spinCount uint32) *Fibtex {
	return &Fibtex{sched: s, id: fibtexIDs.Add(1), spin: spinCount}
}

func (m *Fibtex) tryAcquire(f *fiber) bool {
	return m.owner.CompareAndSwap(nil, f)
}

// TryLock attempts a single atomic acquisition and reports whether it
// succeeded, without ever parking the calling fiber.
func (m *Fibtex) TryLock(ctx *TaskContext) bool {
	return m.tryAcquire(ctx.fiber)
}

// Lock acquires the mutex, parking the calling fiber if it is contended.
// It never fails; an owner that never unlocks parks the caller indefinitely.
func (m *Fibtex) Lock(ctx *TaskContext) {
	f := ctx.fiber
	if m.tryAcquire(f) {
		return
	}
	m.mu.Lock()
	if m.tryAcquire(f) {
		m.mu.Unlock()
		return
	}
	m.waiters = append(m.waiters, f)
	m.mu.Unlock()

	f.park(disposition{kind: toFibtexWait, fibtex: m})
	// Unlock() already handed ownership to us directly before waking us.
}

// LockSpin attempts atomic acquisition up to the configured spin budget
// before falling back to Lock's blocking behavior.
func (m *Fibtex) LockSpin(ctx *TaskContext) {
	for i := uint32(0); i < m.spin; i++ {
		if m.tryAcquire(ctx.fiber) {
			return
		}
	}
	m.Lock(ctx)
}

// LockSpinInfinite retries atomic acquisition forever and never parks the
// fiber, and therefore never yields the worker. It is intended only for
// locks held for a handful of instructions.
func (m *Fibtex) LockSpinInfinite(ctx *TaskContext) {
	for !m.tryAcquire(ctx.fiber) {
	}
}

// Unlock releases the mutex. If another fiber is waiting, ownership passes
// directly to the head of the waiter list (FIFO) and that fiber is moved to
// a resumable queue; otherwise the mutex becomes free.
//
// Unlocking a mutex this fiber does not own, or unlocking twice, is a
// programming error: detected and logged when the scheduler's Config.Debug
// is set, silent otherwise.
func (m *Fibtex) Unlock(ctx *TaskContext) {
	f := ctx.fiber
	if m.owner.Load() != f {
		m.sched.reportLockMisuse(m, f)
		return
	}

	m.mu.Lock()
	if len(m.waiters) == 0 {
		m.owner.Store(nil)
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner.Store(next)
	m.mu.Unlock()

	m.sched.resumeWaiter(next, false, 0)
}
