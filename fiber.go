package fibertasking

import "sync/atomic"

// fiberState is the lifecycle state of a fiber: free and awaiting a task,
// actively running one, or parked waiting on a counter or Fibtex.
type fiberState int32

const (
	fiberFree fiberState = iota
	fiberRunning
	fiberWaiting
)

// dispositionKind is the post-switch disposition a fiber reports about
// itself to the worker driving it, the Go realization of a two-phase
// handoff's "previous-fiber slot."
type dispositionKind int32

const (
	toFree dispositionKind = iota
	toWait
	toFibtexWait
)

// disposition is what a fiber's goroutine sends back over doneCh once it
// stops running, describing what the worker should do with it next.
type disposition struct {
	kind       dispositionKind
	counter    *AtomicCounter
	target     uint64
	fibtex     *Fibtex
	pinned     bool
	workerHint int
}

// fiber is a permanently-alive goroutine bound to one pool slot for the
// lifetime of the scheduler — none are created or destroyed after startup.
// It stands in for a stack-and-registers fiber: the "stack" here is simply
// the Go goroutine's own stack, parked via a blocking channel receive
// instead of a hand-written context switch.
type fiber struct {
	idx      int
	state    atomic.Int32
	worker   atomic.Int32    // index of the worker currently (or most recently) driving this fiber
	resumeCh chan *taskEntry // worker -> fiber: start running this task
	parkCh   chan struct{}
	doneCh   chan disposition // fiber -> worker: what to do with me now
}

func newFiber(idx int) *fiber {
	f := &fiber{
		idx:      idx,
		resumeCh: make(chan *taskEntry),
		parkCh:   make(chan struct{}),
		doneCh:   make(chan disposition),
	}
	f.worker.Store(-1)
	f.state.Store(int32(fiberFree))
	return f
}

func (f *fiber) currentWorker() int { return int(f.worker.Load()) }

// loop is the fiber's entire goroutine body: receive a fresh task, run it
// to completion (possibly parking and resuming any number of times along
// the way via WaitForCounter/Fibtex contention), report itself free, and
// go back to waiting for the next task. It terminates only when the
// scheduler closes resumeCh at shutdown.
func (f *fiber) loop(s *Scheduler) {
	for e := range f.resumeCh {
		f.state.Store(int32(fiberRunning))
		ctx := &TaskContext{sched: s, fiber: f}
		e.task.Fn(ctx, e.task.Arg)
		s.onTaskComplete(e)
		f.state.Store(int32(fiberFree))
		f.doneCh <- disposition{kind: toFree}
	}
}

// park reports disposition to the worker currently driving this fiber and
// blocks until a worker resumes it by sending on parkCh. Called from deep
// inside WaitForCounter/Fibtex.Lock, on the fiber's own goroutine, so the
// goroutine's call stack — the fiber's "registers and stack pointer" — is
// preserved natively by the Go runtime across the suspension.
func (f *fiber) park(d disposition) {
	f.state.Store(int32(fiberWaiting))
	f.doneCh <- d
	<-f.parkCh
	f.state.Store(int32(fiberRunning))
}
