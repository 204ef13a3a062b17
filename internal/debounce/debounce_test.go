package debounce_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/debounce"
)

type collector struct {
	mu      sync.Mutex
	results []debounce.Result[string, bool]
}

func (c *collector) add(r debounce.Result[string, bool]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, r)
}

func (c *collector) get() []debounce.Result[string, bool] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]debounce.Result[string, bool](nil), c.results...)
}

func TestTask_OnlyLatestInputDelivered(t *testing.T) {
	var calls atomic.Int32

	c := &collector{}
	task := debounce.New(20*time.Millisecond, func(_ context.Context, in string) (bool, error) {
		calls.Add(1)
		return in == "acme", nil
	}, c.add)

	for _, in := range []string{"a", "ac", "acm", "acme"} {
		task.Trigger(context.Background(), in)
	}

	require.Eventually(t, func() bool { return len(c.get()) == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	got := c.get()
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0].Input)
	assert.True(t, got[0].Output)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTask_NewInputCancelsRunningCheck(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	c := &collector{}
	task := debounce.New(time.Millisecond, func(ctx context.Context, in string) (bool, error) {
		if in == "slow" {
			close(started)
			<-ctx.Done()
			close(cancelled)

			return false, ctx.Err()
		}

		return true, nil
	}, c.add)

	task.Trigger(context.Background(), "slow")
	<-started

	task.Trigger(context.Background(), "fast")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running check was not cancelled")
	}

	require.Eventually(t, func() bool { return len(c.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fast", c.get()[0].Input)
}

func TestTask_Stop(t *testing.T) {
	c := &collector{}
	task := debounce.New(10*time.Millisecond, func(context.Context, string) (bool, error) {
		return true, nil
	}, c.add)

	task.Trigger(context.Background(), "acme")
	task.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, c.get())
}
