package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"news_portal/internal/domain"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

// Scheduler owns the periodic sync loop. It fires one cycle on Start and then
// one per interval until Stop or the start context is cancelled. Cycles never
// overlap, including ones triggered through RunOnce.
type Scheduler struct {
	syncer       Syncer
	interval     time.Duration
	cycleTimeout time.Duration
	logger       logrus.FieldLogger

	cycleMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(syncer Syncer, interval, cycleTimeout time.Duration, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		syncer:       syncer,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger.WithField("component", "scheduler"),
	}
}

// Start launches the loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the loop has exited. It is nil before Start.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// RunOnce runs a single cycle, waiting for any cycle already in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.SyncStats, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	return s.cycle(ctx)
}

// TryRunOnce runs a single cycle unless one is already in progress, in which
// case it returns domain.ErrSyncInProgress without waiting.
func (s *Scheduler) TryRunOnce(ctx context.Context) (*domain.SyncStats, error) {
	if !s.cycleMu.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.cycleMu.Unlock()

	return s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) (*domain.SyncStats, error) {
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	return s.syncer.Sync(ctx)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.logger.WithField("interval", s.interval).Info("scheduler started")

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("sync failed")
	}
}
