// Package reconcile re-enqueues videos whose dispatch job was never published.
//
// Intake records a video before it enqueues its job, so a broker outage can
// leave a video pending with nothing scheduled. The sweeper finds pending
// videos older than a grace period that were never enqueued, publishes a
// fresh job for each and marks it enqueued. It never changes a video's status.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// lockName guards a sweep so only one worker process runs it at a time
const lockName = "reconcile-sweep"

// DefaultBatchSize caps the videos re-enqueued by one sweep
const DefaultBatchSize = 100

// Publisher enqueues dispatch jobs
type Publisher interface {
	Publish(ctx context.Context, job *models.DispatchJob) error
}

// Locker provides a cluster-wide mutex. Implemented by cache.Cache.
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// Config controls sweep timing
type Config struct {
	Interval  time.Duration
	StaleAge  time.Duration
	BatchSize int
}

// Sweeper periodically re-publishes jobs for stale pending videos
type Sweeper struct {
	videos    database.VideoStore
	publisher Publisher
	locker    Locker
	cfg       Config
	cron      *cron.Cron
	now       func() time.Time
	logger    *logging.Logger
}

// NewSweeper creates a sweeper. locker may be nil for a single worker process.
func NewSweeper(videos database.VideoStore, publisher Publisher, locker Locker, cfg Config, logger *logging.Logger) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	return &Sweeper{
		videos:    videos,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		now:       time.Now,
		logger:    logging.OrNop(logger),
	}
}

// Start schedules Sweep every Interval until ctx is done
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()

	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorWithErr("Reconciliation sweep failed", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Infof("Reconciliation sweeper started (every %s, stale after %s)", s.cfg.Interval, s.cfg.StaleAge)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts scheduling and waits for a running sweep to return
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Reconciliation sweeper stopped")
}

// Sweep re-publishes one batch of stale pending videos and returns how many it enqueued
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, lockName, s.cfg.Interval)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			s.logger.Debug("Sweep already running elsewhere")
			return 0, nil
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, lockName); err != nil {
				s.logger.WarnWithErr("Failed to release sweep lock", err)
			}
		}()
	}

	cutoff := s.now().Add(-s.cfg.StaleAge)
	videos, err := s.videos.ListStalePendingVideos(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale videos: %w", err)
	}

	enqueued := 0
	for _, video := range videos {
		if err := s.publisher.Publish(ctx, models.NewDispatchJob(video)); err != nil {
			// The broker is likely down; the next sweep retries the rest.
			metrics.RecordReconciled(enqueued)
			return enqueued, fmt.Errorf("failed to re-enqueue video %s: %w", video.ID, err)
		}
		enqueued++
		if err := s.videos.MarkVideoEnqueued(ctx, video.ID, s.now()); err != nil {
			s.logger.WithVideoID(video.ID).WarnWithErr("Failed to mark reconciled video enqueued", err)
		}
		s.logger.LogDispatchEvent(video.ID, "reconciled", string(video.Status), map[string]interface{}{
			"created_at": video.CreatedAt,
		})
	}

	metrics.RecordReconciled(enqueued)
	if enqueued > 0 {
		s.logger.Infof("Re-enqueued %d stale pending videos", enqueued)
	}
	return enqueued, nil
}
