package invoice

import (
	"errors"
	"fmt"
	"time"
)

// Quota is a business's position in its rolling upload window.
type Quota struct {
	Used        int
	Limit       int
	WindowStart *time.Time
	Window      time.Duration
}

// NewQuota reads the stored counter, treating an elapsed window as empty.
func NewQuota(count int, windowStart *time.Time, limit int, window time.Duration, now time.Time) Quota {
	q := Quota{Limit: limit, Window: window}

	if windowStart != nil && now.Sub(*windowStart) < window {
		q.Used = count
		q.WindowStart = windowStart
	}

	return q
}

func (q Quota) Remaining() int {
	return max(q.Limit-q.Used, 0)
}

// ResetsIn is the time until the current window ends; zero when no window is open.
func (q Quota) ResetsIn(now time.Time) time.Duration {
	if q.WindowStart == nil {
		return 0
	}

	return max(q.WindowStart.Add(q.Window).Sub(now), 0)
}

func (q Quota) Check(now time.Time) error {
	if q.Used >= q.Limit {
		return &LimitError{Limit: q.Limit, ResetsIn: q.ResetsIn(now)}
	}

	return nil
}

// Consume returns the counter and window start to store after one more invoice.
func (q Quota) Consume(now time.Time) (int, time.Time) {
	if q.WindowStart == nil {
		return 1, now
	}

	return q.Used + 1, *q.WindowStart
}

var ErrLimitReached = errors.New("daily upload limit reached")

// LimitError reports an exhausted quota; it matches ErrLimitReached.
type LimitError struct {
	Limit    int
	ResetsIn time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Daily upload limit (%d) reached", e.Limit)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}
