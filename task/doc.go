// Package task is a minimal cooperative executor.
//
// Tasks implement [Task]. A task that cannot make progress registers the
// [Waker] from its [Context] with whatever will produce its input, returns
// [Pending], and is polled again only after that waker fires. [AtomicWaker]
// is the hand-off point between a producer that may run concurrently (such as
// interrupt delivery) and the task consuming its output.
package task
