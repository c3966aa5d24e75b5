package periodic_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/pkg/periodic"
)

const interval = 20 * time.Millisecond

func TestRunnerLifecycle(t *testing.T) {
	var count int32
	runner := periodic.New("test", func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	}, interval)
	require.Equal(t, periodic.NotStarted, runner.State())

	err := runner.Start(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, periodic.Running, runner.State())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	err = runner.Start(context.Background(), 0)
	require.ErrorIs(t, err, periodic.ErrInvalidState)

	runner.Stop()
	require.Equal(t, periodic.Stopped, runner.State())

	stoppedAt := atomic.LoadInt32(&count)
	time.Sleep(5 * interval)
	require.Equal(t, stoppedAt, atomic.LoadInt32(&count))

	err = runner.Start(context.Background(), 0)
	require.ErrorIs(t, err, periodic.ErrInvalidState)

	err = runner.Resume(context.Background(), interval)
	require.NoError(t, err)
	require.Equal(t, periodic.Running, runner.State())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) > stoppedAt
	}, 2*time.Second, 5*time.Millisecond)

	runner.Stop()
	require.Equal(t, periodic.Stopped, runner.State())
}

func TestRunnerStopNoop(t *testing.T) {
	runner := periodic.New("test", func(ctx context.Context) error {
		return nil
	}, interval)

	done := make(chan struct{})
	go func() {
		runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked on a runner that was never started")
	}
	require.Equal(t, periodic.NotStarted, runner.State())

	err := runner.Resume(context.Background(), 0)
	require.ErrorIs(t, err, periodic.ErrInvalidState)

	require.NoError(t, runner.Start(context.Background(), 0))
	runner.Stop()
	runner.Stop()
	require.Equal(t, periodic.Stopped, runner.State())
}

func TestRunnerStopWaitsForWork(t *testing.T) {
	started := make(chan struct{}, 1)
	var finished int32
	runner := periodic.New("test", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		time.Sleep(2 * periodic.StopPollInterval)
		atomic.StoreInt32(&finished, 1)
		return ctx.Err()
	}, interval)

	require.NoError(t, runner.Start(context.Background(), 0))
	<-started

	runner.Stop()
	require.Equal(t, periodic.Stopped, runner.State())
	require.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestRunnerConcurrentStop(t *testing.T) {
	runner := periodic.New("test", func(ctx context.Context) error {
		return nil
	}, interval)
	require.NoError(t, runner.Start(context.Background(), 0))

	wg := &sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Stop()
			assert.Equal(t, periodic.Stopped, runner.State())
		}()
	}
	wg.Wait()
}

func TestRunnerKeepsGoingOnError(t *testing.T) {
	var count int32
	runner := periodic.New("test", func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return fmt.Errorf("backend unreachable")
	}, interval)

	require.NoError(t, runner.Start(context.Background(), 0))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, periodic.Running, runner.State())

	runner.Stop()
}

func TestRunnerParentContext(t *testing.T) {
	runner := periodic.New("test", func(ctx context.Context) error {
		return nil
	}, interval)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, runner.Start(ctx, 0))
	cancel()

	require.Eventually(t, func() bool {
		return runner.State() == periodic.Stopped
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, runner.Resume(context.Background(), 0))
	runner.Stop()
}

func TestRunnerInvalidInterval(t *testing.T) {
	runner := periodic.New("test", func(ctx context.Context) error {
		return nil
	}, 0)

	err := runner.Start(context.Background(), 0)
	require.Error(t, err)
	require.Equal(t, periodic.NotStarted, runner.State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "NotStarted", periodic.NotStarted.String())
	require.Equal(t, "Running", periodic.Running.String())
	require.Equal(t, "Stopping", periodic.Stopping.String())
	require.Equal(t, "Stopped", periodic.Stopped.String())
	require.Equal(t, "Unknown", periodic.State(42).String())
}
