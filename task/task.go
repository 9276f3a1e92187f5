package task

// Waker schedules a pending task to be polled again.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to the Waker interface.
type WakerFunc func()

// Wake calls f.
func (f WakerFunc) Wake() { f() }

// Context is passed to Task.Poll. It carries the waker of the polled task.
type Context struct {
	waker Waker
}

// NewContext returns a Context carrying w.
func NewContext(w Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker of the task being polled.
func (cx *Context) Waker() Waker { return cx.waker }

// Status is the result of polling a task.
type Status uint8

// Poll results.
const (
	Pending Status = iota // not finished; the task arranged to be woken
	Ready                 // finished; the task is not polled again
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Task is a cooperative unit of work.
//
// Poll advances the task as far as it can without blocking. A task that
// returns Pending must first have handed cx.Waker() to whatever will make
// progress possible, or it will never be polled again.
type Task interface {
	Poll(cx *Context) Status
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(cx *Context) Status

// Poll calls f.
func (f TaskFunc) Poll(cx *Context) Status { return f(cx) }
