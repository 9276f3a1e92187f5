package kbd

import (
	"github.com/ardnew/ehciboot/queue"
	"github.com/ardnew/ehciboot/task"
)

// Stream is the consuming end of a Bridge.
type Stream struct {
	bridge *Bridge
	queue  *queue.Ring[byte]
}

// PollNext returns the next scancode. If none is queued it registers
// cx.Waker() with the bridge, checks the queue once more, and returns false
// if it is still empty. The waker then fires on the next delivery.
func (s *Stream) PollNext(cx *task.Context) (byte, bool) {
	if b, ok := s.queue.Pop(); ok {
		return b, true
	}
	return s.registerAndRecheck(cx)
}

// registerAndRecheck covers a delivery that lands after the first empty
// check but before the waker is registered.
func (s *Stream) registerAndRecheck(cx *task.Context) (byte, bool) {
	s.bridge.waker.Register(cx.Waker())
	if b, ok := s.queue.Pop(); ok {
		s.bridge.waker.Take()
		return b, true
	}
	return 0, false
}

// Len returns the number of queued scancodes.
func (s *Stream) Len() int { return s.queue.Len() }

// Cap returns the queue capacity.
func (s *Stream) Cap() int { return s.queue.Cap() }

// Stats returns the delivery counters of the stream's bridge.
func (s *Stream) Stats() Stats { return s.bridge.Stats() }
