// Package dispatch delivers a queued video to each of its target platforms.
//
// A job fans out one goroutine per target platform, waits for all of them and
// then writes status and per-platform results in a single update. One
// platform's failure, timeout or panic is recorded in its result and never
// stops its siblings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/platform"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/tracing"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// DefaultPlatformTimeout bounds a single platform delivery
const DefaultPlatformTimeout = 10 * time.Minute

// Connectors resolves platforms to connectors. Implemented by platform.Registry.
type Connectors interface {
	Get(p models.Platform) (platform.Connector, error)
}

// ResultCache is notified when a video reaches a terminal state. Implemented by cache.Cache.
type ResultCache interface {
	DeleteVideo(ctx context.Context, videoID string) error
	IncrementStat(ctx context.Context, stat string) error
}

// Worker handles dispatch jobs
type Worker struct {
	videos          database.VideoStore
	connectors      Connectors
	cache           ResultCache
	platformTimeout time.Duration
	logger          *logging.Logger
}

// Option configures a Worker
type Option func(*Worker)

// WithCache invalidates cached videos and counts outcomes after each job
func WithCache(c ResultCache) Option {
	return func(w *Worker) { w.cache = c }
}

// WithPlatformTimeout overrides DefaultPlatformTimeout
func WithPlatformTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.platformTimeout = d
		}
	}
}

// NewWorker creates a dispatch worker
func NewWorker(videos database.VideoStore, connectors Connectors, logger *logging.Logger, opts ...Option) *Worker {
	w := &Worker{
		videos:          videos,
		connectors:      connectors,
		platformTimeout: DefaultPlatformTimeout,
		logger:          logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle runs one dispatch job. It matches queue.Handler.
//
// A returned error means the aggregate update did not happen; the video has
// been forced to failed and the queue decides on redelivery.
func (w *Worker) Handle(ctx context.Context, job *models.DispatchJob) error {
	span, ctx := tracing.Start(ctx, "dispatch.job",
		opentracing.Tag{Key: "video_id", Value: job.VideoID},
		opentracing.Tag{Key: "attempt", Value: job.Attempt},
	)
	defer span.Finish()

	metrics.DispatchJobsInProgress.Inc()
	defer metrics.DispatchJobsInProgress.Dec()

	start := time.Now()
	logger := w.logger.WithVideoID(job.VideoID).WithUserID(job.UserID)

	video, err := w.videos.GetVideo(ctx, job.VideoID)
	if errors.Is(err, models.ErrNotFound) {
		logger.Warn("Video no longer exists, dropping dispatch job")
		return nil
	}
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("failed to load video %s: %w", job.VideoID, err)
	}
	if job.Attempt == 0 && video.Status == models.VideoStatusSuccess {
		logger.Warn("Video already delivered, dropping duplicate dispatch job")
		return nil
	}

	if err := w.videos.UpdateVideoStatus(ctx, video.ID, models.VideoStatusProcessing); err != nil {
		tracing.Fail(span, err)
		return w.fail(ctx, video.ID, start, fmt.Errorf("failed to mark video processing: %w", err))
	}

	targets := targetsFor(job, video)
	logger.LogDispatchEvent(video.ID, "started", string(models.VideoStatusProcessing), map[string]interface{}{
		"platforms": targets,
		"attempt":   job.Attempt,
	})

	results := w.fanOut(ctx, video, targets)
	status := results.AggregateStatus(targets)

	if err := w.videos.UpdateVideoResult(ctx, video.ID, status, results); err != nil {
		tracing.Fail(span, err)
		return w.fail(ctx, video.ID, start, fmt.Errorf("failed to record upload results: %w", err))
	}

	w.finish(ctx, video.ID, status)
	metrics.RecordDispatchJob(string(status), time.Since(start).Seconds())
	span.SetTag("status", string(status))
	logger.LogDispatchEvent(video.ID, "completed", string(status), map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// targetsFor returns the job's platforms that the video was submitted for.
// A job without platforms falls back to the video's own targets.
func targetsFor(job *models.DispatchJob, video *models.Video) []models.Platform {
	if len(job.TargetPlatforms) == 0 {
		return video.TargetPlatforms
	}

	targets := make([]models.Platform, 0, len(job.TargetPlatforms))
	for _, p := range job.TargetPlatforms {
		if video.Targets(p) {
			targets = append(targets, p)
		}
	}
	return targets
}

// fanOut delivers to every target concurrently and joins on all of them
func (w *Worker) fanOut(ctx context.Context, video *models.Video, targets []models.Platform) models.UploadResults {
	collected := make([]models.UploadResult, len(targets))

	var wg conc.WaitGroup
	for i, p := range targets {
		wg.Go(func() {
			collected[i] = w.deliver(ctx, video, p)
		})
	}
	wg.Wait()

	results := make(models.UploadResults, len(targets))
	for i, p := range targets {
		results[p] = collected[i]
	}
	return results
}

// deliver uploads to one platform. It always returns a result.
func (w *Worker) deliver(ctx context.Context, video *models.Video, p models.Platform) (result models.UploadResult) {
	span, ctx := tracing.Start(ctx, "dispatch.platform", opentracing.Tag{Key: "platform", Value: string(p)})
	defer span.Finish()

	start := time.Now()
	defer func() {
		duration := time.Since(start)
		metrics.RecordPlatformUpload(string(p), result.Success, duration.Seconds())

		detail := result.URL
		if !result.Success {
			detail = result.Error
			ext.Error.Set(span, true)
		}
		w.logger.LogPlatformResult(video.ID, string(p), result.Success, detail, duration)
	}()

	payload, ok := video.Metadata.For(p)
	if !ok {
		return models.FailedResult(fmt.Errorf("no metadata generated for %s", p))
	}

	connector, err := w.connectors.Get(p)
	if err != nil {
		return models.FailedResult(err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.platformTimeout)
	defer cancel()

	var pc panics.Catcher
	pc.Try(func() {
		result = connector.UploadVideo(ctx, video.UserID, video.FileRef, payload)
	})
	if recovered := pc.Recovered(); recovered != nil {
		return models.FailedResult(recovered.AsError())
	}

	if !result.Success && result.Error == "" {
		result.Error = "upload failed"
	}
	return result
}

// fail forces the video to failed after the aggregate update could not happen
func (w *Worker) fail(ctx context.Context, videoID string, start time.Time, cause error) error {
	logger := w.logger.WithVideoID(videoID)

	if err := w.videos.UpdateVideoStatus(ctx, videoID, models.VideoStatusFailed); err != nil {
		logger.ErrorWithErr("Failed to force video to failed", err)
	}
	w.finish(ctx, videoID, models.VideoStatusFailed)

	metrics.RecordDispatchJob(string(models.VideoStatusFailed), time.Since(start).Seconds())
	metrics.RecordError("dispatch", "record_update")
	logger.ErrorWithErr("Dispatch job failed", cause)

	return cause
}

func (w *Worker) finish(ctx context.Context, videoID string, status models.VideoStatus) {
	if w.cache == nil {
		return
	}
	if err := w.cache.DeleteVideo(ctx, videoID); err != nil {
		w.logger.WithVideoID(videoID).WarnWithErr("Failed to invalidate cached video", err)
	}
	if err := w.cache.IncrementStat(ctx, "dispatch_"+string(status)); err != nil {
		w.logger.WarnWithErr("Failed to update dispatch stats", err)
	}
}
