package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/ehciboot/pkg"
	"github.com/ardnew/ehciboot/queue"
)

// DefaultMaxTasks is the task capacity of an Executor created with a
// non-positive limit.
const DefaultMaxTasks = 64

// TaskID identifies a task spawned on an Executor.
type TaskID uint32

// entry is a spawned task and its waker.
type entry struct {
	task  Task
	waker *taskWaker
}

// taskWaker reschedules one task. It is created once per task, so waking it
// does not allocate.
type taskWaker struct {
	id     TaskID
	ex     *Executor
	queued atomic.Bool
}

// Wake implements Waker.
func (w *taskWaker) Wake() {
	w.ex.schedule(w)
}

// Executor polls tasks cooperatively on a single goroutine.
//
// A task is polled once when spawned and again each time its waker fires.
// Wakers may be called from any goroutine.
type Executor struct {
	mu     sync.Mutex
	tasks  map[TaskID]entry
	nextID TaskID
	max    int

	ready  *queue.Ring[TaskID]
	notify chan struct{}
}

// NewExecutor returns an Executor that holds at most maxTasks live tasks.
func NewExecutor(maxTasks int) *Executor {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	return &Executor{
		tasks:  make(map[TaskID]entry),
		max:    maxTasks,
		ready:  queue.NewRing[TaskID](2 * maxTasks),
		notify: make(chan struct{}, 1),
	}
}

// Spawn adds t and schedules its first poll. It fails with
// [pkg.ErrQueueFull] when the executor already holds its maximum number of
// tasks.
func (e *Executor) Spawn(t Task) (TaskID, error) {
	e.mu.Lock()
	if len(e.tasks) >= e.max {
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: executor holds %d tasks", pkg.ErrQueueFull, e.max)
	}
	id := e.nextID
	e.nextID++
	w := &taskWaker{id: id, ex: e}
	e.tasks[id] = entry{task: t, waker: w}
	e.mu.Unlock()

	pkg.LogDebug(pkg.ComponentTask, "task spawned", "id", id)
	w.Wake()
	return id, nil
}

// Len returns the number of live tasks.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// schedule queues w's task once, however often it is woken before the next
// poll. Wakers of finished tasks stay marked queued and never push again.
func (e *Executor) schedule(w *taskWaker) {
	if w.queued.Swap(true) {
		return
	}
	if !e.ready.Push(w.id) {
		pkg.LogError(pkg.ComponentTask, "ready queue overflow", "id", w.id)
		return
	}
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// RunReady polls every queued task once and returns how many were polled.
func (e *Executor) RunReady() int {
	polled := 0
	for {
		id, ok := e.ready.Pop()
		if !ok {
			return polled
		}
		e.mu.Lock()
		ent, live := e.tasks[id]
		e.mu.Unlock()
		if !live {
			continue
		}

		// Clear before polling so a wake during Poll requeues the task.
		ent.waker.queued.Store(false)
		polled++
		if ent.task.Poll(NewContext(ent.waker)) == Ready {
			ent.waker.queued.Store(true)
			e.mu.Lock()
			delete(e.tasks, id)
			e.mu.Unlock()
			pkg.LogDebug(pkg.ComponentTask, "task finished", "id", id)
		}
	}
}

// Run polls tasks until all of them finish or ctx is done. When no task is
// queued it parks until a waker fires.
//
// Run returns nil once no live tasks remain, or ctx.Err().
func (e *Executor) Run(ctx context.Context) error {
	for {
		e.RunReady()
		if e.Len() == 0 {
			return nil
		}
		select {
		case <-e.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
