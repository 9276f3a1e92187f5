package kbd

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/ehciboot/pkg"
	"github.com/ardnew/ehciboot/queue"
	"github.com/ardnew/ehciboot/task"
)

// DefaultCapacity is the scancode queue capacity used when none is given.
const DefaultCapacity = 100

// DropFunc is called for every scancode the bridge drops, with
// [pkg.ErrQueueUninitialized] or [pkg.ErrQueueFull] as the reason.
type DropFunc func(scancode byte, reason error)

// Stats counts what happened to delivered scancodes.
type Stats struct {
	Delivered     uint64 // pushed onto the queue
	DroppedFull   uint64 // dropped because the queue was full
	DroppedUninit uint64 // dropped because no stream existed yet
}

// Bridge carries scancodes from interrupt delivery to a single consuming task.
//
// The producer side, [Bridge.Deliver], never blocks and never panics. Pushing
// and waking do not allocate; only the drop diagnostic may. The consumer side
// is the [Stream] returned by [Bridge.NewStream], which may be created only
// once per Bridge.
type Bridge struct {
	queue atomic.Pointer[queue.Ring[byte]]
	waker task.AtomicWaker

	// OnDrop, if set, replaces the default drop diagnostic. It runs on the
	// delivery path and must not block. Set it before deliveries begin.
	OnDrop DropFunc

	delivered     atomic.Uint64
	droppedFull   atomic.Uint64
	droppedUninit atomic.Uint64
}

// NewBridge returns a Bridge with no stream.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Deliver hands one scancode to the consumer. If no stream exists yet, or the
// queue is full, the scancode is dropped and reported. The newest scancode is
// the one dropped; queued input is never overwritten.
func (b *Bridge) Deliver(scancode byte) {
	q := b.queue.Load()
	if q == nil {
		b.droppedUninit.Add(1)
		b.drop(scancode, pkg.ErrQueueUninitialized)
		return
	}
	if !q.Push(scancode) {
		b.droppedFull.Add(1)
		b.drop(scancode, pkg.ErrQueueFull)
		return
	}
	b.delivered.Add(1)
	b.waker.Wake()
}

func (b *Bridge) drop(scancode byte, reason error) {
	if b.OnDrop != nil {
		b.OnDrop(scancode, reason)
		return
	}
	pkg.LogWarn(pkg.ComponentKbd, "dropping keyboard input",
		"scancode", scancode,
		"reason", reason)
}

// NewStream creates the bridge's queue with room for capacity scancodes, or
// [DefaultCapacity] if capacity is not positive, and returns its consumer.
//
// NewStream panics if called a second time on the same Bridge: two streams
// would each see only part of the input.
func (b *Bridge) NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := queue.NewRing[byte](capacity)
	if !b.queue.CompareAndSwap(nil, q) {
		panic("kbd: scancode stream already initialized")
	}
	pkg.LogDebug(pkg.ComponentKbd, "scancode stream initialized", "capacity", capacity)
	return &Stream{bridge: b, queue: q}
}

// Stats returns a snapshot of the delivery counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Delivered:     b.delivered.Load(),
		DroppedFull:   b.droppedFull.Load(),
		DroppedUninit: b.droppedUninit.Load(),
	}
}

// String formats the counters for diagnostics.
func (s Stats) String() string {
	return fmt.Sprintf("delivered %d, dropped %d full, %d uninitialized",
		s.Delivered, s.DroppedFull, s.DroppedUninit)
}

var defaultBridge = NewBridge()

// Default returns the process-wide bridge used by [Deliver] and [NewStream].
func Default() *Bridge { return defaultBridge }

// Deliver hands one scancode to the process-wide bridge. It is the entry
// point for the keyboard interrupt.
func Deliver(scancode byte) { defaultBridge.Deliver(scancode) }

// NewStream initializes the process-wide bridge and returns its consumer. It
// panics if called more than once per process.
func NewStream(capacity int) *Stream { return defaultBridge.NewStream(capacity) }
