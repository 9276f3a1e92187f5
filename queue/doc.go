// Package queue provides a bounded lock-free ring buffer.
//
// [Ring] is the buffer between interrupt delivery and task consumption: the
// producer must never block or allocate, and a full ring rejects the new
// element instead of overwriting an old one.
package queue
