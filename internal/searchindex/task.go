package searchindex

import (
	"context"
	"fmt"
	"time"
)

// WaitOutcome is the terminal result of waiting for an index task.
type WaitOutcome string

const (
	// WaitCompleted means the task reached the published state.
	WaitCompleted WaitOutcome = "completed"
	// WaitTimedOut means the task did not publish within the retry bound.
	WaitTimedOut WaitOutcome = "timed_out"
	// WaitFailed means polling itself failed (network, auth, 5xx).
	WaitFailed WaitOutcome = "failed"
)

const statusPublished = "published"

// TaskWaiter polls task status under a bounded retry policy: a fixed number
// of attempts at a fixed interval. It never loops forever.
type TaskWaiter struct {
	Attempts int
	Interval time.Duration
}

// NewTaskWaiter returns a waiter with sane lower bounds applied.
func NewTaskWaiter(attempts int, interval time.Duration) TaskWaiter {
	if attempts <= 0 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return TaskWaiter{Attempts: attempts, Interval: interval}
}

// Wait polls until the task publishes, the attempt budget is spent, or the
// context is cancelled. The error is non-nil only alongside WaitFailed.
func (w TaskWaiter) Wait(ctx context.Context, client Client, task Task) (WaitOutcome, error) {
	var lastErr error
	for i := 0; i < w.Attempts; i++ {
		status, err := client.TaskStatus(ctx, task.Index, task.ID)
		if err != nil {
			lastErr = err
		} else if status == statusPublished {
			return WaitCompleted, nil
		}

		if i == w.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return WaitFailed, ctx.Err()
		case <-time.After(w.Interval):
		}
	}
	if lastErr != nil {
		return WaitFailed, fmt.Errorf("task %d polling failed: %w", task.ID, lastErr)
	}
	return WaitTimedOut, nil
}

// WaitAll waits for each task in order, stopping at the first non-completed
// outcome and returning the task that caused it.
func (w TaskWaiter) WaitAll(ctx context.Context, client Client, tasks []Task) (Task, WaitOutcome, error) {
	for _, task := range tasks {
		outcome, err := w.Wait(ctx, client, task)
		if outcome != WaitCompleted {
			return task, outcome, err
		}
	}
	return Task{}, WaitCompleted, nil
}
