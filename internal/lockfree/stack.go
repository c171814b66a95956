// Package lockfree provides the free-pool and resumable-fiber stack used by
// the scheduler. It is a generics-adapted version of the Treiber stack in
// alphadose/itogami's stack.go: a lock-free, freelist-backed LIFO stack.
// The FILO property keeps whichever fiber ran most recently warm in CPU
// cache, which is itogami's own stated rationale for choosing a stack over
// a FIFO structure for its parked-goroutine pool.
//
// Credits -> https://github.com/golang-design/lockfree, by way of
// alphadose/itogami.
package lockfree

import (
	"sync"
	"sync/atomic"
)

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Stack is a lock-free LIFO stack of *T values.
type Stack[T any] struct {
	top  atomic.Pointer[node[T]]
	pool sync.Pool
}

// NewStack returns an empty stack.
func NewStack[T any]() *Stack[T] {
	s := &Stack[T]{}
	s.pool.New = func() any { return &node[T]{} }
	return s
}

// Push pushes v onto the top of the stack.
func (s *Stack[T]) Push(v T) {
	item := s.pool.Get().(*node[T])
	item.value = v
	for {
		top := s.top.Load()
		item.next.Store(top)
		if s.top.CompareAndSwap(top, item) {
			return
		}
	}
}

// Pop removes and returns the value at the top of the stack. ok is false if
// the stack was empty.
func (s *Stack[T]) Pop() (value T, ok bool) {
	for {
		top := s.top.Load()
		if top == nil {
			return value, false
		}
		next := top.next.Load()
		if s.top.CompareAndSwap(top, next) {
			value = top.value
			var zero T
			top.value = zero
			top.next.Store(nil)
			s.pool.Put(top)
			return value, true
		}
	}
}
