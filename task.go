package fibertasking

// TaskFunc is the entry point of a unit of work. It receives the context of
// the fiber running it (through which further tasks can be submitted and
// counters waited on) and the caller-supplied argument. The argument's
// lifetime is the caller's responsibility, matching the C original's
// void* arg.
type TaskFunc func(ctx *TaskContext, arg any)

// Task is a value-copyable unit of work: a function pointer plus an opaque
// argument.
type Task struct {
	Fn  TaskFunc
	Arg any
}

// TaskContext is handed to a running task and carries the identity of the
// fiber executing it. Go has no portable per-goroutine storage, so rather
// than reach for thread-local-ish tricks, fiber identity is threaded
// explicitly through this context — see DESIGN.md's resolution of the
// "GetCurrentThreadIndex" open question.
type TaskContext struct {
	sched *Scheduler
	fiber *fiber
}

// Scheduler returns the scheduler this task is running under.
func (c *TaskContext) Scheduler() *Scheduler { return c.sched }

// WorkerIndex returns the index of the worker currently driving this
// fiber. It is the Go realization of GetCurrentThreadIndex: since fibers
// are goroutines rather than OS threads, "current thread" becomes "current
// worker slot" — stable across a pinned wait, best-effort otherwise.
func (c *TaskContext) WorkerIndex() int { return c.fiber.currentWorker() }

// WaitForCounter suspends the calling fiber until ctr reaches target. If
// ctr already equals target, it returns immediately without suspending.
func (c *TaskContext) WaitForCounter(ctr *AtomicCounter, target uint64) {
	c.sched.waitForCounter(c.fiber, ctr, target, false, 0)
}

// WaitForCounterPinned behaves like WaitForCounter, but guarantees the
// fiber resumes only on the worker it was parked from — required for code
// that must observe worker-local state, such as a thread-affine graphics
// command list.
func (c *TaskContext) WaitForCounterPinned(ctr *AtomicCounter, target uint64) {
	c.sched.waitForCounter(c.fiber, ctr, target, true, c.fiber.currentWorker())
}
