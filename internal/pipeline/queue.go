package pipeline

import "sync"

// Slot is a single-slot, latest-wins cross-task channel: Put replaces any
// unconsumed value rather than queueing behind it. It carries the utterance
// handoff from capture to recognition, where only the newest thing the user
// said matters.
//
// Take blocks until a value is available or the slot is closed. All methods
// are safe for concurrent use.
type Slot[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	val    T
	full   bool
	closed bool
}

// NewSlot creates an empty open slot.
func NewSlot[T any]() *Slot[T] {
	s := &Slot[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put stores v, overwriting any pending value, and wakes one waiting
// consumer. Put on a closed slot is a no-op.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.val = v
	s.full = true
	s.cond.Signal()
}

// Take blocks until a value is available and returns it, or returns
// ok=false once the slot is closed and empty.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.full && !s.closed {
		s.cond.Wait()
	}
	if !s.full {
		var zero T
		return zero, false
	}
	v = s.val
	var zero T
	s.val = zero
	s.full = false
	return v, true
}

// Drain discards any pending value without waking consumers.
func (s *Slot[T]) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.val = zero
	s.full = false
}

// Close marks the slot closed and wakes all waiters. A pending value is
// still delivered to the next Take; after that all Takes return ok=false.
// Close is idempotent.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// FIFO is a blocking first-in-first-out queue with the same close
// discipline as [Slot]. It carries commands from recognition to reasoning —
// the state machine only admits one command in flight, so ordering
// semantics are immaterial today, but FIFO keeps the hop general.
type FIFO[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// NewFIFO creates an empty open queue.
func NewFIFO[T any]() *FIFO[T] {
	q := &FIFO[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends v and wakes one waiting consumer. Put on a closed queue is a
// no-op.
func (q *FIFO[T]) Put(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, v)
	q.cond.Signal()
}

// Take blocks until an item is available and returns the oldest one, or
// returns ok=false once the queue is closed and empty.
func (q *FIFO[T]) Take() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	v = q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Close marks the queue closed and wakes all waiters. Pending items are
// still delivered in order; after that all Takes return ok=false.
// Close is idempotent.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
