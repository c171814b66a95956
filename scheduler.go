package fibertasking

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Apache-HB/FiberTaskingLib/internal/lockfree"
)

// AutoThreadCount tells Run to size the worker pool to runtime.NumCPU().
// An explicit zero is rejected by Config.Validate rather than treated as
// this sentinel, so "zero threads" is caught at the door as invalid
// configuration instead of silently becoming a full-sized pool.
const AutoThreadCount = -1

// Config holds Run's startup parameters.
type Config struct {
	// FiberPoolSize is F, the number of pre-allocated fibers. Must be > 0.
	FiberPoolSize int
	// ThreadCount is W, the number of workers. Must be > 0, or
	// AutoThreadCount to size the pool to runtime.NumCPU().
	ThreadCount int
	// EmptyQueuePolicy selects worker behavior when idle.
	EmptyQueuePolicy EmptyQueuePolicy
	// Logger receives scheduler diagnostics; a NoOpLogger is used if nil.
	Logger Logger
	// Debug enables lock-misuse diagnostics: double-unlocks and
	// unlock-by-non-owner are logged instead of being silently ignored.
	Debug bool
}

// Validate checks cfg for invalid configuration and returns a *ConfigError
// rather than aborting the process — idiomatic Go error-return in place of
// a fatal-at-entry check.
func (c Config) Validate() error {
	if c.FiberPoolSize <= 0 {
		return &ConfigError{Field: "FiberPoolSize", Reason: "must be > 0"}
	}
	if c.ThreadCount != AutoThreadCount && c.ThreadCount <= 0 {
		return &ConfigError{Field: "ThreadCount", Reason: "must be > 0, or AutoThreadCount"}
	}
	return nil
}

// Scheduler owns the worker pool, fiber pool, and task/resumable queues.
// Users instantiate it through Run; there is no package-level singleton.
type Scheduler struct {
	cfg Config

	fibers     []*fiber
	freeFibers *lockfree.Stack[*fiber]

	readyTasks *taskQueue
	resumable  *resumableQueue
	workers    []*worker

	terminating atomic.Bool
	wakeCh      chan struct{}
	wg          sync.WaitGroup

	logger Logger
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fibertasking: invalid Config.%s: %s", e.Field, e.Reason)
}

// Run starts a scheduler: allocates the fiber pool and worker threads,
// enqueues mainTask as the first task, starts workers 1..W-1 on their own
// goroutines, and runs worker 0's loop on the calling goroutine (which is
// not locked to an OS thread). It returns once mainTask
// has returned and every worker has drained, or immediately with a
// *ConfigError if cfg is invalid.
func Run(cfg Config, mainTask TaskFunc, arg any) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ThreadCount == AutoThreadCount {
		cfg.ThreadCount = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = NoOpLogger{}
	}

	s := &Scheduler{
		cfg:        cfg,
		freeFibers: lockfree.NewStack[*fiber](),
		readyTasks: newTaskQueue(),
		resumable:  newResumableQueue(),
		wakeCh:     make(chan struct{}, cfg.ThreadCount),
		logger:     cfg.Logger,
	}

	s.fibers = make([]*fiber, cfg.FiberPoolSize)
	for i := range s.fibers {
		f := newFiber(i)
		s.fibers[i] = f
		s.freeFibers.Push(f)
		go f.loop(s)
	}

	s.workers = make([]*worker, cfg.ThreadCount)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}

	s.logger.Info("scheduler starting", F("fibers", cfg.FiberPoolSize), F("workers", cfg.ThreadCount), F("policy", cfg.EmptyQueuePolicy.String()))

	wrapped := TaskFunc(func(ctx *TaskContext, a any) {
		mainTask(ctx, a)
		s.terminating.Store(true)
		for range s.workers {
			s.notifyWork()
		}
	})
	s.AddTask(Task{Fn: wrapped, Arg: arg}, nil)

	s.wg.Add(len(s.workers) - 1)
	for i := 1; i < len(s.workers); i++ {
		w := s.workers[i]
		go func() {
			defer s.wg.Done()
			w.run()
		}()
	}

	s.workers[0].run()
	s.wg.Wait()

	for _, f := range s.fibers {
		close(f.resumeCh)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// AddTask atomically increments ctr (if non-nil) and pushes task onto the
// ready queue.
func (s *Scheduler) AddTask(task Task, ctr *AtomicCounter) {
	if ctr != nil {
		ctr.increment(1)
	}
	s.readyTasks.push(taskEntry{task: task, counter: ctr})
	s.notifyWork()
}

// AddTasks adds len(tasks) to ctr (if non-nil) and enqueues every task.
func (s *Scheduler) AddTasks(tasks []Task, ctr *AtomicCounter) {
	if ctr != nil {
		ctr.increment(uint64(len(tasks)))
	}
	for _, t := range tasks {
		s.readyTasks.push(taskEntry{task: t, counter: ctr})
	}
	s.notifyWork()
}

// onTaskComplete decrements the entry's counter, if it had one, once its
// task function has returned.
func (s *Scheduler) onTaskComplete(e *taskEntry) {
	if e.counter != nil {
		e.counter.decrement(1)
	}
}

// acquireFreeFiber pops a fiber from the free pool, retrying with a
// scheduling hint if the pool is momentarily exhausted — fiber exhaustion
// past startup is treated as backpressure, not a fatal resource-exhaustion
// failure. If every fiber is parked waiting on tasks that themselves need a
// free fiber, the retry never succeeds and the worker spins here forever.
func (s *Scheduler) acquireFreeFiber() *fiber {
	for {
		if f, ok := s.freeFibers.Pop(); ok {
			return f
		}
		runtime.Gosched()
	}
}

func (s *Scheduler) releaseFiber(f *fiber) {
	f.worker.Store(-1)
	s.freeFibers.Push(f)
}

// waitForCounter is TaskContext.WaitForCounter[Pinned]'s implementation.
func (s *Scheduler) waitForCounter(f *fiber, ctr *AtomicCounter, target uint64, pinned bool, workerHint int) {
	if ctr.Load() == target {
		return
	}
	f.park(disposition{kind: toWait, counter: ctr, target: target, pinned: pinned, workerHint: workerHint})
}

// parkFiberOnCounter registers f as a waiter on ctr. If ctr already
// satisfies target by the time registration completes, f is resumed
// immediately instead.
func (s *Scheduler) parkFiberOnCounter(f *fiber, ctr *AtomicCounter, target uint64, pinned bool, workerHint int) {
	w := &waiter{fiber: f, target: target, pinned: pinned, workerHint: workerHint}
	if ctr.park(w) {
		s.resumeWaiter(f, pinned, workerHint)
	}
}

// resumeWaiter moves f onto the resumable queue appropriate for pinned —
// the named worker's private queue, or the global queue — and wakes any
// Sleep-policy worker that might be idling.
func (s *Scheduler) resumeWaiter(f *fiber, pinned bool, workerHint int) {
	if pinned {
		s.workers[workerHint].pinned.push(f)
	} else {
		s.resumable.push(f)
	}
	s.notifyWork()
}

// reportLockMisuse logs a double-unlock or unlock-by-non-owner, when
// Config.Debug requests it, and is otherwise silent.
func (s *Scheduler) reportLockMisuse(m *Fibtex, f *fiber) {
	if !s.cfg.Debug {
		return
	}
	s.logger.Error("fibtex unlock by non-owner or double unlock", F("fibtex_id", m.id), F("fiber", f.idx))
}
