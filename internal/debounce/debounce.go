// Package debounce runs a check after input settles. A new input cancels the
// pending or running check, so only the latest input ever produces a result.
package debounce

import (
	"context"
	"sync"
	"time"
)

type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

type Result[In, Out any] struct {
	Input  In
	Output Out
	Err    error
}

type Task[In, Out any] struct {
	delay   time.Duration
	fn      Func[In, Out]
	deliver func(Result[In, Out])

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// New creates a task. deliver runs on a timer goroutine, without the task's
// lock held, and only for the most recent input.
func New[In, Out any](delay time.Duration, fn Func[In, Out], deliver func(Result[In, Out])) *Task[In, Out] {
	return &Task[In, Out]{delay: delay, fn: fn, deliver: deliver}
}

// Trigger replaces any pending run with one for in after the delay.
func (t *Task[In, Out]) Trigger(ctx context.Context, in In) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
	seq := t.seq

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.timer = time.AfterFunc(t.delay, func() {
		out, err := t.fn(runCtx, in)

		t.mu.Lock()
		current := seq == t.seq && runCtx.Err() == nil
		t.mu.Unlock()

		if current {
			t.deliver(Result[In, Out]{Input: in, Output: out, Err: err})
		}
	})
}

// Stop cancels the pending run, if any. Nothing is delivered afterwards.
func (t *Task[In, Out]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
}

func (t *Task[In, Out]) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
