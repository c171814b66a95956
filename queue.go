package fibertasking

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/Apache-HB/FiberTaskingLib/internal/lockfree"
)

// taskEntry pairs a task with the counter it was submitted against, so the
// worker that dequeues it knows what to decrement on completion.
type taskEntry struct {
	task    Task
	counter *AtomicCounter
}

// taskQueue is the scheduler's ready queue: a first-in-first-out queue of
// pending tasks, shared across workers. Backed by gammazero/deque (promoted
// here from an indirect dependency to a direct one) behind a mutex — the
// lock-free stack in internal/lockfree is reserved for the LIFO
// free/resumable fiber pools, where strict FIFO ordering does not matter;
// the ready queue's FIFO ordering requirement is simplest to guarantee
// with a deque plus a mutex.
type taskQueue struct {
	mu sync.Mutex
	dq deque.Deque[taskEntry]
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

func (q *taskQueue) push(e taskEntry) {
	q.mu.Lock()
	q.dq.PushBack(e)
	q.mu.Unlock()
}

func (q *taskQueue) pop() (taskEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return taskEntry{}, false
	}
	return q.dq.PopFront(), true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dq.Len()
}

// resumableQueue is the global pool of fibers that are no longer waiting
// and eligible to resume on any worker. It is a lock-free LIFO, built on
// the free-goroutine stack in internal/lockfree.
type resumableQueue struct {
	stack *lockfree.Stack[*fiber]
}

func newResumableQueue() *resumableQueue {
	return &resumableQueue{stack: lockfree.NewStack[*fiber]()}
}

func (q *resumableQueue) push(f *fiber) { q.stack.Push(f) }

func (q *resumableQueue) pop() (*fiber, bool) { return q.stack.Pop() }

// pinnedQueue is a worker-private resumable queue: multi-producer (any
// worker satisfying a pinned wait may push), single-consumer (only the
// owning worker pops). A mutex-guarded deque is enough since only one
// goroutine ever drains it.
type pinnedQueue struct {
	mu sync.Mutex
	dq deque.Deque[*fiber]
}

func newPinnedQueue() *pinnedQueue { return &pinnedQueue{} }

func (q *pinnedQueue) push(f *fiber) {
	q.mu.Lock()
	q.dq.PushBack(f)
	q.mu.Unlock()
}

func (q *pinnedQueue) pop() (*fiber, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return nil, false
	}
	return q.dq.PopFront(), true
}
