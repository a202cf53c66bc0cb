// Package loop provides the single execution context the chat engine runs on.
//
// Engine state is only touched from closures executed by Run. Blocking work (REST
// calls) runs on its own goroutine through Await and hands its result back to the
// loop, and deferred work is scheduled with AfterFunc. This keeps every state
// mutation an atomic step between suspension points without locking.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("loop stopped")

// Loop is an unbounded FIFO of closures drained by a single goroutine.
type Loop struct {
	ctx     context.Context
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	stopped chan struct{}
	running atomic.Bool
}

// New creates a loop whose Await calls run under ctx.
func New(ctx context.Context) *Loop {
	return &Loop{
		ctx:     ctx,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Context returns the context blocking work started from the loop should use.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Post enqueues fn. It never blocks and may be called from any goroutine,
// including the loop itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits until it has run. It must not be called from the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrStopped
	}
}

// Run drains the queue until the loop context is cancelled.
func (l *Loop) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop already running")
	}
	defer close(l.stopped)

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.ctx.Done():
			return l.ctx.Err()
		case <-l.wake:
		}
	}
}

// Await runs work on a new goroutine and delivers its result on the loop.
func Await[T any](l *Loop, work func(ctx context.Context) (T, error), deliver func(T, error)) {
	go func() {
		v, err := work(l.ctx)
		l.Post(func() { deliver(v, err) })
	}()
}

// Timer is a cancelable scheduled task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the task was
	// still pending.
	Stop() bool
}

// Scheduler schedules deferred tasks.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if t.fired.Load() {
		return false
	}
	wasPending := !t.stopped.Swap(true)
	t.t.Stop()
	return wasPending
}

// AfterFunc runs fn on the loop after d. A Stop issued before fn starts
// suppresses it even when the timer already expired and fn is queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped.Load() {
				return
			}
			lt.fired.Store(true)
			fn()
		})
	})
	return lt
}
