// Package enrich runs batches of independent lookup tasks with bounded
// parallelism, per-task timeouts, and a retry-once-then-degrade policy.
package enrich

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task resolves one value. Implementations must honor ctx cancellation; a
// task abandoned after its deadline keeps running until its own call returns,
// and its result is discarded.
type Task[T any] func(ctx context.Context) (T, error)

// Options tunes a batch run. Zero values take the defaults below.
type Options[T any] struct {
	// MaxConcurrency caps how many tasks run at once (default 5).
	MaxConcurrency int
	// TaskTimeout bounds a single attempt (default 5s).
	TaskTimeout time.Duration
	// GroupDeadline bounds a whole group of MaxConcurrency tasks; tasks
	// still outstanding when it fires resolve to Fallback (default 5s).
	GroupDeadline time.Duration
	// Pacing is slept between groups when the batch spans more than one
	// group, bounding the sustained call rate (default 100ms).
	Pacing time.Duration
	// RetryBackoff is slept before the single retry after a timeout
	// (default 500ms).
	RetryBackoff time.Duration
	// Fallback is the sentinel value a degraded task resolves to.
	Fallback T
}

func (o Options[T]) withDefaults() Options[T] {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 5
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 5 * time.Second
	}
	if o.GroupDeadline <= 0 {
		o.GroupDeadline = 5 * time.Second
	}
	if o.Pacing <= 0 {
		o.Pacing = 100 * time.Millisecond
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	return o
}

// Run executes tasks and returns one result per task, in input order,
// regardless of completion order. A task that times out is retried once
// after a short backoff; a second timeout, any other error, or the group
// deadline resolves it to the fallback sentinel. Run never fails: degraded
// tasks are represented in the result slice, not as an error.
func Run[T any](ctx context.Context, tasks []Task[T], opts Options[T]) []T {
	opts = opts.withDefaults()
	results := make([]T, len(tasks))

	for start := 0; start < len(tasks); start += opts.MaxConcurrency {
		end := start + opts.MaxConcurrency
		if end > len(tasks) {
			end = len(tasks)
		}

		groupCtx, cancel := context.WithTimeout(ctx, opts.GroupDeadline)
		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = runOne(groupCtx, tasks[i], opts)
				return nil
			})
		}
		_ = g.Wait()
		cancel()

		if end < len(tasks) {
			select {
			case <-time.After(opts.Pacing):
			case <-ctx.Done():
				for i := end; i < len(tasks); i++ {
					results[i] = opts.Fallback
				}
				return results
			}
		}
	}
	return results
}

func runOne[T any](ctx context.Context, task Task[T], opts Options[T]) T {
	v, err := attempt(ctx, task, opts.TaskTimeout)
	if err == nil {
		return v
	}
	if !IsTimeout(err) || ctx.Err() != nil {
		return opts.Fallback
	}

	select {
	case <-time.After(opts.RetryBackoff):
	case <-ctx.Done():
		return opts.Fallback
	}

	v, err = attempt(ctx, task, opts.TaskTimeout)
	if err != nil {
		return opts.Fallback
	}
	return v
}

func attempt[T any](ctx context.Context, task Task[T], timeout time.Duration) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return task(attemptCtx)
}

// IsTimeout reports whether err represents a transport or deadline timeout,
// the only failure class that earns a retry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
