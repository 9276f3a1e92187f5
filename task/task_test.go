package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/ehciboot/pkg"
)

// =============================================================================
// Helpers
// =============================================================================

// countingWaker counts Wake calls.
type countingWaker struct {
	n atomic.Int32
}

func (w *countingWaker) Wake() { w.n.Add(1) }

// =============================================================================
// Task Tests
// =============================================================================

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Pending, "pending"},
		{Ready, "ready"},
		{Status(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestContext_Waker(t *testing.T) {
	w := &countingWaker{}
	cx := NewContext(w)
	cx.Waker().Wake()
	if w.n.Load() != 1 {
		t.Errorf("Wake count = %d, want 1", w.n.Load())
	}

	called := false
	TaskFunc(func(cx *Context) Status {
		called = true
		return Ready
	}).Poll(cx)
	if !called {
		t.Error("TaskFunc.Poll() did not call the function")
	}
}

// =============================================================================
// AtomicWaker Tests
// =============================================================================

func TestAtomicWaker_RegisterWake(t *testing.T) {
	var a AtomicWaker
	w := &countingWaker{}

	a.Wake() // nothing registered
	a.Register(w)
	a.Wake()
	a.Wake() // waker already taken
	if got := w.n.Load(); got != 1 {
		t.Errorf("Wake count = %d, want 1", got)
	}
}

func TestAtomicWaker_RegisterReplaces(t *testing.T) {
	var a AtomicWaker
	first, second := &countingWaker{}, &countingWaker{}
	a.Register(first)
	a.Register(second)
	a.Wake()
	if first.n.Load() != 0 || second.n.Load() != 1 {
		t.Errorf("wakes = %d, %d, want 0, 1", first.n.Load(), second.n.Load())
	}
}

func TestAtomicWaker_Take(t *testing.T) {
	var a AtomicWaker
	if a.Take() != nil {
		t.Error("Take() on empty = non-nil")
	}
	w := &countingWaker{}
	a.Register(w)
	if got := a.Take(); got != w {
		t.Errorf("Take() = %v, want registered waker", got)
	}
	a.Wake()
	if w.n.Load() != 0 {
		t.Error("Wake() after Take() woke the waker")
	}
}

func TestAtomicWaker_RegisterDuringWake(t *testing.T) {
	var a AtomicWaker
	a.state.Store(waking)
	w := &countingWaker{}
	a.Register(w)
	if w.n.Load() != 1 {
		t.Errorf("Register() during wake: wakes = %d, want 1", w.n.Load())
	}
	if a.state.Load() != waking {
		t.Errorf("state = %d, want waking untouched", a.state.Load())
	}
}

func TestAtomicWaker_WakeDuringRegister(t *testing.T) {
	var a AtomicWaker
	a.state.Store(registering)
	if a.Take() != nil {
		t.Error("Take() during registration = non-nil")
	}
	if a.state.Load() != registering|waking {
		t.Errorf("state = %d, want registering|waking", a.state.Load())
	}
}

func TestAtomicWaker_NoLostWakeups(t *testing.T) {
	// A producer sets a flag then wakes. The consumer registers then checks
	// the flag. Every round must observe the flag or be woken.
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		var (
			a     AtomicWaker
			flag  atomic.Bool
			woken = make(chan struct{}, 1)
		)
		w := WakerFunc(func() {
			select {
			case woken <- struct{}{}:
			default:
			}
		})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			flag.Store(true)
			a.Wake()
		}()

		a.Register(w)
		if !flag.Load() {
			select {
			case <-woken:
			case <-time.After(5 * time.Second):
				t.Fatalf("round %d: wakeup lost", i)
			}
		}
		wg.Wait()
	}
}

// =============================================================================
// Executor Tests
// =============================================================================

func TestExecutor_RunToCompletion(t *testing.T) {
	ex := NewExecutor(4)
	polls := 0
	if _, err := ex.Spawn(TaskFunc(func(cx *Context) Status {
		polls++
		if polls < 3 {
			cx.Waker().Wake()
			return Pending
		}
		return Ready
	})); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ex.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
	if ex.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ex.Len())
	}
}

func TestExecutor_WakeFromOtherGoroutine(t *testing.T) {
	ex := NewExecutor(0)
	var (
		a    AtomicWaker
		done atomic.Bool
	)
	if _, err := ex.Spawn(TaskFunc(func(cx *Context) Status {
		a.Register(cx.Waker())
		if done.Load() {
			return Ready
		}
		return Pending
	})); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		done.Store(true)
		a.Wake()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ex.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestExecutor_DuplicateWakesPollOnce(t *testing.T) {
	ex := NewExecutor(2)
	polls := 0
	var waker Waker
	if _, err := ex.Spawn(TaskFunc(func(cx *Context) Status {
		polls++
		waker = cx.Waker()
		return Pending
	})); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if got := ex.RunReady(); got != 1 {
		t.Fatalf("RunReady() = %d, want 1", got)
	}

	for i := 0; i < 10; i++ {
		waker.Wake()
	}
	if got := ex.RunReady(); got != 1 {
		t.Errorf("RunReady() after 10 wakes = %d, want 1", got)
	}
	if polls != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
}

func TestExecutor_FinishedTaskIgnoresWake(t *testing.T) {
	ex := NewExecutor(1)
	var waker Waker
	polls := 0
	ex.Spawn(TaskFunc(func(cx *Context) Status {
		polls++
		waker = cx.Waker()
		return Ready
	}))
	ex.RunReady()
	waker.Wake()
	if got := ex.RunReady(); got != 0 {
		t.Errorf("RunReady() after finished wake = %d, want 0", got)
	}
	if polls != 1 {
		t.Errorf("polls = %d, want 1", polls)
	}
}

func TestExecutor_SpawnLimit(t *testing.T) {
	ex := NewExecutor(2)
	pending := TaskFunc(func(*Context) Status { return Pending })
	for i := 0; i < 2; i++ {
		if _, err := ex.Spawn(pending); err != nil {
			t.Fatalf("Spawn(%d) error = %v", i, err)
		}
	}
	if _, err := ex.Spawn(pending); !errors.Is(err, pkg.ErrQueueFull) {
		t.Errorf("Spawn() over limit error = %v, want ErrQueueFull", err)
	}
}

func TestExecutor_RunCancel(t *testing.T) {
	ex := NewExecutor(1)
	ex.Spawn(TaskFunc(func(*Context) Status { return Pending }))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := ex.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if ex.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ex.Len())
	}
}
