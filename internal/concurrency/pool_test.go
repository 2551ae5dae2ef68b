package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			return i * i, nil
		}
	}

	results, err := Run(context.Background(), 4, tasks)
	require.NoError(t, err)

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestRun_LimitsConcurrency(t *testing.T) {
	var inFlight int32
	var maxSeen int32

	tasks := make([]Task[struct{}], 30)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if cur <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, cur) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return struct{}{}, nil
		}
	}

	_, err := Run(context.Background(), 5, tasks)
	require.NoError(t, err)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 5)
}

func TestRun_FirstErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	var started int32

	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			atomic.AddInt32(&started, 1)
			return 0, boom
		},
		func(ctx context.Context) (int, error) {
			<-ctx.Done()
			atomic.AddInt32(&started, 1)
			return 0, ctx.Err()
		},
	}

	_, err := Run(context.Background(), 2, tasks)
	require.Error(t, err)
}

func TestRun_FewerTasksThanLimitRunsAll(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 2, nil },
	}

	results, err := Run(context.Background(), 10, tasks)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, results)
}
