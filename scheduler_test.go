package fibertasking

import (
	"sync/atomic"
	"testing"
)

func testConfig() Config {
	return Config{FiberPoolSize: 64, ThreadCount: 4, EmptyQueuePolicy: Spin}
}

// Round-trip property: submitting K tasks that each increment a shared
// atomic by 1, then waiting, yields exactly K.
func TestAddTasksRoundTrip(t *testing.T) {
	const k = 5000
	var got atomic.Int64

	err := Run(testConfig(), func(ctx *TaskContext, _ any) {
		ctr := NewAtomicCounter(ctx.Scheduler(), 0)
		tasks := make([]Task, k)
		for i := range tasks {
			tasks[i] = Task{Fn: func(*TaskContext, any) { got.Add(1) }}
		}
		ctx.Scheduler().AddTasks(tasks, ctr)
		ctx.WaitForCounter(ctr, 0)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Load() != k {
		t.Fatalf("got %d, want %d", got.Load(), k)
	}
}

// Triangle number scenario: sum 1..n by partitioning into chunk-sized
// tasks, at reduced scale for a fast test.
func TestTriangleNumber(t *testing.T) {
	const n = int64(100000)
	const chunk = int64(997)
	var total atomic.Int64

	err := Run(testConfig(), func(ctx *TaskContext, _ any) {
		ctr := NewAtomicCounter(ctx.Scheduler(), 0)
		for lo := int64(1); lo <= n; lo += chunk {
			hi := lo + chunk - 1
			if hi > n {
				hi = n
			}
			lo, hi := lo, hi
			ctx.Scheduler().AddTask(Task{Fn: func(*TaskContext, any) {
				var sum int64
				for v := lo; v <= hi; v++ {
					sum += v
				}
				total.Add(sum)
			}}, ctr)
		}
		ctx.WaitForCounter(ctr, 0)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := n * (n + 1) / 2
	if total.Load() != want {
		t.Fatalf("total = %d, want %d", total.Load(), want)
	}
}

// Producer/consumer scenario: producers each spawn many consumers that
// increment a shared atomic, at reduced scale.
func TestProducerConsumer(t *testing.T) {
	const producers = 20
	const consumers = 500
	var total atomic.Int64

	err := Run(testConfig(), func(ctx *TaskContext, _ any) {
		root := NewAtomicCounter(ctx.Scheduler(), 0)
		producerTask := Task{Fn: func(ctx *TaskContext, _ any) {
			sub := NewAtomicCounter(ctx.Scheduler(), 0)
			tasks := make([]Task, consumers)
			for i := range tasks {
				tasks[i] = Task{Fn: func(*TaskContext, any) { total.Add(1) }}
			}
			ctx.Scheduler().AddTasks(tasks, sub)
			ctx.WaitForCounter(sub, 0)
		}}
		tasks := make([]Task, producers)
		for i := range tasks {
			tasks[i] = producerTask
		}
		ctx.Scheduler().AddTasks(tasks, root)
		ctx.WaitForCounter(root, 0)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := int64(producers) * int64(consumers)
	if total.Load() != want {
		t.Fatalf("total = %d, want %d", total.Load(), want)
	}
}

// Nested waits: a task adds subtasks which themselves add further
// subtasks, each level waiting on its own counter — exercises fiber-pool
// reuse at depth greater than the worker count.
func TestNestedWaits(t *testing.T) {
	var leaves atomic.Int64

	var level func(depth int) TaskFunc
	level = func(depth int) TaskFunc {
		return func(ctx *TaskContext, _ any) {
			if depth == 0 {
				leaves.Add(1)
				return
			}
			ctr := NewAtomicCounter(ctx.Scheduler(), 0)
			tasks := make([]Task, 4)
			for i := range tasks {
				tasks[i] = Task{Fn: level(depth - 1)}
			}
			ctx.Scheduler().AddTasks(tasks, ctr)
			ctx.WaitForCounter(ctr, 0)
		}
	}

	cfg := testConfig()
	cfg.FiberPoolSize = 16 // fewer fibers than the eventual task tree width
	err := Run(cfg, level(5), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := int64(1)
	for i := 0; i < 5; i++ {
		want *= 4
	}
	if leaves.Load() != want {
		t.Fatalf("leaves = %d, want %d", leaves.Load(), want)
	}
}

// Pinned wait scenario: a fiber parked with pinned=true always resumes on
// the worker it parked from.
func TestPinnedWaitResumesOnSameWorker(t *testing.T) {
	var parkedWorker, resumedWorker atomic.Int32
	parkedWorker.Store(-1)
	resumedWorker.Store(-1)

	err := Run(testConfig(), func(ctx *TaskContext, _ any) {
		ctr := NewAtomicCounter(ctx.Scheduler(), 0)
		root := NewAtomicCounter(ctx.Scheduler(), 0)

		ctx.Scheduler().AddTask(Task{Fn: func(ctx *TaskContext, _ any) {
			// Hold ctr non-zero while the waiter below registers.
			done := NewAtomicCounter(ctx.Scheduler(), 0)
			ctx.Scheduler().AddTask(Task{Fn: func(*TaskContext, any) {}}, done)
			ctx.WaitForCounter(done, 0)
		}}, ctr)

		ctx.Scheduler().AddTask(Task{Fn: func(ctx *TaskContext, _ any) {
			parkedWorker.Store(int32(ctx.WorkerIndex()))
			ctx.WaitForCounterPinned(ctr, 0)
			resumedWorker.Store(int32(ctx.WorkerIndex()))
		}}, root)

		ctx.WaitForCounter(root, 0)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if parkedWorker.Load() != resumedWorker.Load() {
		t.Fatalf("parked on worker %d but resumed on worker %d", parkedWorker.Load(), resumedWorker.Load())
	}
}

// Fiber conservation invariant: at steady state, Running + Waiting + Free
// + Resumable fibers equals the configured pool size. Checked here
// indirectly by confirming the free pool returns to full size once all
// work has drained.
func TestFiberConservation(t *testing.T) {
	const poolSize = 32
	cfg := testConfig()
	cfg.FiberPoolSize = poolSize

	var sched *Scheduler
	err := Run(cfg, func(ctx *TaskContext, _ any) {
		sched = ctx.Scheduler()
		ctr := NewAtomicCounter(ctx.Scheduler(), 0)
		tasks := make([]Task, 500)
		for i := range tasks {
			tasks[i] = Task{Fn: func(*TaskContext, any) {}}
		}
		ctx.Scheduler().AddTasks(tasks, ctr)
		ctx.WaitForCounter(ctr, 0)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	free := 0
	for {
		if _, ok := sched.freeFibers.Pop(); !ok {
			break
		}
		free++
	}
	if free != poolSize {
		t.Fatalf("free fiber count = %d, want %d", free, poolSize)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []Config{
		{FiberPoolSize: 0, ThreadCount: 1},
		{FiberPoolSize: 1, ThreadCount: 0},
		{FiberPoolSize: 1, ThreadCount: -2},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", c)
		}
	}
}

func TestConfigValidationAcceptsAutoThreadCount(t *testing.T) {
	c := Config{FiberPoolSize: 1, ThreadCount: AutoThreadCount}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate(%+v) = %v, want nil", c, err)
	}
}
