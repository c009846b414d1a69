package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupAge(primary, reference Upload) RunRequest {
	return RunRequest{
		Primary:   primary,
		Reference: reference,
		Merge:     MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}},
	}
}

// singleSlotService allows one run at a time and waits up to wait for it.
func singleSlotService(wait time.Duration) *Service {
	cfg := testConfig()
	cfg.Merge.MaxConcurrent = 1
	cfg.Merge.MaxWaitTime = wait
	return NewService(cfg, nil)
}

func TestRunLimiter_QueuedRunProceedsWhenSlotFrees(t *testing.T) {
	svc := singleSlotService(time.Second)
	primary, reference := peopleUploads(t)

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	go func() {
		time.Sleep(30 * time.Millisecond)
		svc.limiter.Release()
	}()

	out, err := svc.Run(context.Background(), lookupAge(primary, reference))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Result.OutputRows)
	assert.Equal(t, 0, svc.LimiterStatus().Active)
}

func TestRunLimiter_WaitExpires(t *testing.T) {
	svc := singleSlotService(20 * time.Millisecond)
	primary, reference := peopleUploads(t)

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	_, err := svc.Run(context.Background(), lookupAge(primary, reference))
	assert.ErrorIs(t, err, ErrTooManyRuns)
	assert.Equal(t, "RUN001", MapError(err).Code)
}

func TestRunLimiter_ClientLeavesWhileQueued(t *testing.T) {
	svc := singleSlotService(time.Second)
	primary, reference := peopleUploads(t)

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Run(ctx, lookupAge(primary, reference))

	// The caller's deadline, not the limiter's wait, ended the run.
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTooManyRuns)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRunLimiter_NeverExceedsMax(t *testing.T) {
	l := NewRunLimiter(2, time.Second)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			defer l.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, RunLimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestService_WaitForRunsDrains(t *testing.T) {
	svc := singleSlotService(time.Second)
	require.NoError(t, svc.limiter.Acquire(context.Background()))
	assert.Equal(t, RunLimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, svc.LimiterStatus())

	t.Run("gives up with the shutdown deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, svc.WaitForRuns(ctx), context.DeadlineExceeded)
	})

	t.Run("returns once the active run ends", func(t *testing.T) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			svc.limiter.Release()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, svc.WaitForRuns(ctx))

		// Draining leaves the slots usable.
		require.NoError(t, svc.limiter.Acquire(context.Background()))
		svc.limiter.Release()
	})
}

func TestNewRunLimiter_Defaults(t *testing.T) {
	l := NewRunLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrentRuns, l.Status().MaxConcurrent)
	assert.Equal(t, DefaultMaxWaitTime, l.maxWait)
}
