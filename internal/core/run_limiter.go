package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns is returned when no run slot frees up within the wait.
var ErrTooManyRuns = errors.New("too many concurrent merges, please try again later")

// Limiter defaults, used when the configured values are not positive.
const (
	DefaultMaxConcurrentRuns = 4
	DefaultMaxWaitTime       = 30 * time.Second
)

// RunLimiter caps how many merges hold their workbooks in memory at once.
// A run waits up to maxWait for a slot. Waiters are served in arrival order.
type RunLimiter struct {
	sem     *semaphore.Weighted
	size    int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter allows maxConcurrent simultaneous runs.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a run slot. It returns ctx's error if the caller gives up
// first, or ErrTooManyRuns once maxWait passes. Pair every nil return with
// a Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// WaitForDrain blocks until no run holds a slot. It takes every slot at
// once, so runs arriving during shutdown queue behind it.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.size); err != nil {
		return err
	}
	l.sem.Release(l.size)
	return nil
}

// RunLimiterStatus is a snapshot of the limiter for /healthz.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports the limiter state.
func (l *RunLimiter) Status() RunLimiterStatus {
	active := int(l.active.Load())
	return RunLimiterStatus{
		Active:        active,
		Available:     int(l.size) - active,
		MaxConcurrent: int(l.size),
	}
}
