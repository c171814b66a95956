package fibertasking

import "sort"

// LockGuard acquires ftx with a blocking Lock at construction and releases
// it when Release is called — Go has no destructors, so callers use
// `defer g.Release()` where C++ would rely on scope exit.
type LockGuard struct {
	ctx *TaskContext
	ftx *Fibtex
}

// NewLockGuard locks ftx (blocking) and returns a guard that releases it.
func NewLockGuard(ctx *TaskContext, ftx *Fibtex) *LockGuard {
	ftx.Lock(ctx)
	return &LockGuard{ctx: ctx, ftx: ftx}
}

// Release unlocks the guarded mutex.
func (g *LockGuard) Release() { g.ftx.Unlock(g.ctx) }

// SpinLockGuard acquires ftx via spin-then-block at construction.
type SpinLockGuard struct {
	ctx *TaskContext
	ftx *Fibtex
}

// NewSpinLockGuard locks ftx via LockSpin and returns a guard that
// releases it.
func NewSpinLockGuard(ctx *TaskContext, ftx *Fibtex) *SpinLockGuard {
	ftx.LockSpin(ctx)
	return &SpinLockGuard{ctx: ctx, ftx: ftx}
}

// Release unlocks the guarded mutex.
func (g *SpinLockGuard) Release() { g.ftx.Unlock(g.ctx) }

// InfiniteSpinLockGuard acquires ftx via pure spinning at construction.
type InfiniteSpinLockGuard struct {
	ctx *TaskContext
	ftx *Fibtex
}

// NewInfiniteSpinLockGuard locks ftx via LockSpinInfinite and returns a
// guard that releases it.
func NewInfiniteSpinLockGuard(ctx *TaskContext, ftx *Fibtex) *InfiniteSpinLockGuard {
	ftx.LockSpinInfinite(ctx)
	return &InfiniteSpinLockGuard{ctx: ctx, ftx: ftx}
}

// Release unlocks the guarded mutex.
func (g *InfiniteSpinLockGuard) Release() { g.ftx.Unlock(g.ctx) }

// UniqueLock defers acquisition until the caller explicitly requests it,
// and may be re-locked with any of the three acquisition modes after an
// explicit Unlock.
type UniqueLock struct {
	ctx    *TaskContext
	ftx    *Fibtex
	locked bool
}

// NewUniqueLock returns an unlocked UniqueLock over ftx.
func NewUniqueLock(ctx *TaskContext, ftx *Fibtex) *UniqueLock {
	return &UniqueLock{ctx: ctx, ftx: ftx}
}

// Lock acquires the underlying mutex (blocking mode).
func (u *UniqueLock) Lock() {
	u.ftx.Lock(u.ctx)
	u.locked = true
}

// LockSpin acquires the underlying mutex (spin-then-block mode).
func (u *UniqueLock) LockSpin() {
	u.ftx.LockSpin(u.ctx)
	u.locked = true
}

// LockSpinInfinite acquires the underlying mutex (pure spin mode).
func (u *UniqueLock) LockSpinInfinite() {
	u.ftx.LockSpinInfinite(u.ctx)
	u.locked = true
}

// TryLock attempts a single atomic acquisition.
func (u *UniqueLock) TryLock() bool {
	if u.ftx.TryLock(u.ctx) {
		u.locked = true
		return true
	}
	return false
}

// Unlock releases the mutex if currently held by this UniqueLock.
func (u *UniqueLock) Unlock() {
	if !u.locked {
		return
	}
	u.ftx.Unlock(u.ctx)
	u.locked = false
}

// Locked reports whether this UniqueLock currently holds its mutex.
func (u *UniqueLock) Locked() bool { return u.locked }

// ScopedLock acquires an ordered set of Fibtexes as a unit, using
// deadlock-avoidance by always acquiring in a globally-consistent order
// (each Fibtex's creation-sequence id) rather than caller-supplied order —
// that ordering alone is what prevents deadlock between two ScopedLocks
// over overlapping mutex sets. When tryLock is true, ScopedLock acquires
// greedily in that order and releases everything it took if any single
// acquisition fails; when false, it acquires blockingly in that order.
type ScopedLock struct {
	ctx    *TaskContext
	locked []*Fibtex
}

// NewScopedLock locks every mutex in mus as a unit. If tryLock is false it
// blocks until all are acquired (in id order) and always succeeds.
// If tryLock is true it attempts each acquisition without blocking,
// releasing everything already taken and returning ok=false on the first
// failure.
func NewScopedLock(ctx *TaskContext, tryLock bool, mus ...*Fibtex) (sl *ScopedLock, ok bool) {
	ordered := append([]*Fibtex(nil), mus...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	sl = &ScopedLock{ctx: ctx}
	for _, m := range ordered {
		if tryLock {
			if !m.TryLock(ctx) {
				sl.Release()
				return sl, false
			}
		} else {
			m.Lock(ctx)
		}
		sl.locked = append(sl.locked, m)
	}
	return sl, true
}

// Release unlocks every mutex this ScopedLock holds, in reverse
// acquisition order.
func (sl *ScopedLock) Release() {
	for i := len(sl.locked) - 1; i >= 0; i-- {
		sl.locked[i].Unlock(sl.ctx)
	}
	sl.locked = nil
}
