package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_portal/internal/domain"
)

type countingSyncer struct {
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
	err     error
}

func (c *countingSyncer) Sync(ctx context.Context) (*domain.SyncStats, error) {
	if c.active.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.active.Add(-1)

	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &domain.SyncStats{New: 1}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Hour, time.Second, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_TicksOnInterval(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, 10*time.Millisecond, time.Second, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopWaitsForLoop(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Hour, time.Second, quietLogger())

	assert.Nil(t, s.Done())
	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("loop still running after Stop")
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(&countingSyncer{}, time.Hour, time.Second, quietLogger())

	require.NoError(t, s.Start(ctx))
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, time.Hour, time.Second, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, time.Hour, time.Second, quietLogger())
	s.Stop()
}

func TestScheduler_SyncErrorDoesNotStopLoop(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("feed down")}
	s := NewScheduler(syncer, 10*time.Millisecond, time.Second, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRunOnce_ReturnsStats(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, time.Hour, time.Second, quietLogger())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
}

func TestRunOnce_AppliesCycleTimeout(t *testing.T) {
	syncer := &countingSyncer{delay: time.Second}
	s := NewScheduler(syncer, time.Hour, 20*time.Millisecond, quietLogger())

	_, err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryRunOnce_RejectsWhileCycleRunning(t *testing.T) {
	syncer := &countingSyncer{delay: 200 * time.Millisecond}
	s := NewScheduler(syncer, time.Hour, time.Second, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunOnce(context.Background())
	}()
	require.Eventually(t, func() bool { return syncer.active.Load() == 1 }, time.Second, time.Millisecond)

	_, err := s.TryRunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	<-done
	stats, err := s.TryRunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, int32(2), syncer.calls.Load())
}

func TestRunOnce_CyclesDoNotOverlap(t *testing.T) {
	syncer := &countingSyncer{delay: 10 * time.Millisecond}
	s := NewScheduler(syncer, time.Hour, time.Second, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), syncer.calls.Load())
	assert.False(t, syncer.overlap.Load())
}
