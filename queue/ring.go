package queue

import (
	"fmt"
	"sync/atomic"
)

// slot holds one element and the sequence number that says whose turn it is.
type slot[T any] struct {
	seq   atomic.Uint64
	value T
}

// Ring is a bounded multi-producer, multi-consumer FIFO.
//
// Push and Pop never block and never allocate. They are safe to call from
// any number of goroutines, including an interrupt delivery path racing the
// consumer.
type Ring[T any] struct {
	_     [64]byte
	head  atomic.Uint64 // next position to push
	_     [56]byte
	tail  atomic.Uint64 // next position to pop
	_     [56]byte
	slots []slot[T]
	limit uint64
}

// minSlots is the smallest slot count for which a filled slot's sequence
// differs from the sequence a producer expects one lap later.
const minSlots = 2

// NewRing returns a Ring holding at most capacity elements. It panics if
// capacity is not positive.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("queue: invalid ring capacity %d", capacity))
	}
	r := &Ring[T]{
		slots: make([]slot[T], max(capacity, minSlots)),
		limit: uint64(capacity),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Push appends v. It returns false, leaving the ring unchanged, when the ring
// is full.
func (r *Ring[T]) Push(v T) bool {
	n := uint64(len(r.slots))
	pos := r.head.Load()
	for {
		// A stale tail only makes the ring look fuller than it is.
		if int64(pos-r.tail.Load()) >= int64(r.limit) {
			return false
		}
		s := &r.slots[pos%n]
		seq := s.seq.Load()
		switch diff := int64(seq - pos); {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				s.value = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = r.head.Load()
		case diff < 0:
			return false
		default:
			pos = r.head.Load()
		}
	}
}

// Pop removes and returns the oldest element. ok is false when the ring is
// empty.
func (r *Ring[T]) Pop() (v T, ok bool) {
	n := uint64(len(r.slots))
	pos := r.tail.Load()
	for {
		s := &r.slots[pos%n]
		seq := s.seq.Load()
		switch diff := int64(seq - (pos + 1)); {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				v = s.value
				var zero T
				s.value = zero
				s.seq.Store(pos + n)
				return v, true
			}
			pos = r.tail.Load()
		case diff < 0:
			return v, false
		default:
			pos = r.tail.Load()
		}
	}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return int(r.limit) }

// Len returns the number of buffered elements. Under concurrent use the
// result is a snapshot and may be stale when it returns.
func (r *Ring[T]) Len() int {
	for {
		tail := r.tail.Load()
		head := r.head.Load()
		if r.tail.Load() != tail {
			continue
		}
		if head < tail {
			return 0
		}
		if d := head - tail; d < r.limit {
			return int(d)
		}
		return int(r.limit)
	}
}
