package task

import "sync/atomic"

// AtomicWaker states. REGISTERING and WAKING are bits so a wake can arrive
// while a registration is in progress.
const (
	waiting     uint32 = 0
	registering uint32 = 1 << 0
	waking      uint32 = 1 << 1
)

// AtomicWaker holds at most one Waker and hands it off between a consumer that
// registers and a producer that wakes. Register and Wake may race from
// different goroutines without a lock; a wake that lands during a
// registration is delivered to the waker being registered.
//
// Wake never blocks and never allocates, so it is safe on an interrupt
// delivery path.
type AtomicWaker struct {
	state atomic.Uint32
	waker Waker
}

// Register stores w as the waker to notify on the next Wake, replacing any
// earlier waker.
//
// Register is meant for a single consumer. Concurrent Register calls do not
// corrupt state, but only one of them wins.
func (a *AtomicWaker) Register(w Waker) {
	if a.state.CompareAndSwap(waiting, registering) {
		a.waker = w
		if a.state.CompareAndSwap(registering, waiting) {
			return
		}
		// A wake arrived during registration. Deliver it now.
		pending := a.waker
		a.waker = nil
		a.state.Store(waiting)
		if pending != nil {
			pending.Wake()
		}
		return
	}
	if a.state.Load() == waking {
		// A concurrent Wake holds the slot; w would miss it.
		w.Wake()
	}
}

// Wake takes the registered waker, if any, and wakes it.
func (a *AtomicWaker) Wake() {
	if w := a.Take(); w != nil {
		w.Wake()
	}
}

// Take removes and returns the registered waker without waking it. It
// returns nil when no waker is registered or a registration is in progress.
func (a *AtomicWaker) Take() Waker {
	if a.state.Or(waking) != waiting {
		return nil
	}
	w := a.waker
	a.waker = nil
	a.state.And(^waking)
	return w
}
