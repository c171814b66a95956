package fibertasking

// worker is an owning loop that drains ready/resumable work and drives
// fibers through a two-phase handoff, implemented here as a synchronous
// channel rendezvous (see doc.go).
type worker struct {
	idx    int
	sched  *Scheduler
	pinned *pinnedQueue
}

func newWorker(idx int, s *Scheduler) *worker {
	return &worker{idx: idx, sched: s, pinned: newPinnedQueue()}
}

// run is the worker's main loop. It returns once the scheduler is
// terminating and both its own private queue and the global queues have
// been observed empty.
func (w *worker) run() {
	s := w.sched
	for {
		if f, ok := w.pinned.pop(); ok {
			w.driveResume(f)
			continue
		}
		if f, ok := s.resumable.pop(); ok {
			w.driveResume(f)
			continue
		}
		if e, ok := s.readyTasks.pop(); ok {
			f := s.acquireFreeFiber()
			w.driveStart(f, e)
			continue
		}
		if s.terminating.Load() {
			return
		}
		s.idle(w)
	}
}

// driveStart hands a fresh task to a free fiber and blocks until that
// fiber either finishes the task or parks partway through it.
func (w *worker) driveStart(f *fiber, e taskEntry) {
	f.worker.Store(int32(w.idx))
	f.resumeCh <- &e
	w.finishDrive(f)
}

// driveResume wakes a previously-parked fiber from exactly the point it
// suspended and blocks until it finishes or parks again.
func (w *worker) driveResume(f *fiber) {
	f.worker.Store(int32(w.idx))
	f.parkCh <- struct{}{}
	w.finishDrive(f)
}

// finishDrive consults the disposition the fiber reported when it stopped
// running — the Go realization of the two-phase handoff's "previous-fiber
// slot" — and completes it: return the fiber to the free pool, attach it
// as a counter waiter, or (for a Fibtex wait) do nothing further, since
// Fibtex.Lock already recorded the waiter itself before parking.
func (w *worker) finishDrive(f *fiber) {
	d := <-f.doneCh
	switch d.kind {
	case toFree:
		w.sched.releaseFiber(f)
	case toWait:
		w.sched.parkFiberOnCounter(f, d.counter, d.target, d.pinned, d.workerHint)
	case toFibtexWait:
		// Nothing to do: the waiter is already recorded on the Fibtex's
		// own waiter list; Fibtex.Unlock will push it to a resumable
		// queue directly.
	}
}
