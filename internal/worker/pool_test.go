package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsJobs(t *testing.T) {
	p := New(2)
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		id, err := p.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}
	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, int32(10), ran.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(2)
	var running, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		_, err := p.Submit("block", func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, int32(2), peak.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p := New(1)
	_, err := p.Submit("boom", func(context.Context) error { panic("boom") })
	require.NoError(t, err)
	var after atomic.Bool
	_, err = p.Submit("after", func(context.Context) error {
		after.Store(true)
		return errors.New("ordinary failure")
	})
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
	require.True(t, after.Load())
}

func TestPoolQueueLimit(t *testing.T) {
	p := New(1, WithQueueLimit(1))
	release := make(chan struct{})
	_, err := p.Submit("hold", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = p.Submit("overflow", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrFull)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	require.Zero(t, p.Pending())
}

func TestPoolShutdownCancelsStragglers(t *testing.T) {
	p := New(1)
	cancelled := make(chan struct{})
	_, err := p.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
	<-cancelled

	_, err = p.Submit("late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}
