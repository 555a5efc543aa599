// Package upload accepts videos from users and hands them to the dispatch queue.
//
// Intake runs the quota check, stores the file, records the video as pending,
// charges the quota and enqueues a dispatch job, in that order. It never waits
// for platform delivery. When enqueueing fails the video stays pending until the
// reconciliation sweep picks it up.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metadata"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/quota"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/storage"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/tracing"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// DefaultListLimit is the page size used when the caller does not pass one
const DefaultListLimit = 50

// MaxListLimit bounds a single listing
const MaxListLimit = 200

// Intake outcomes recorded in metrics
const (
	resultAccepted    = "accepted"
	resultRejected    = "rejected"
	resultQuotaDenied = "quota_denied"
	resultFailed      = "failed"
)

// QuotaGate is the part of quota.Gate used by intake
type QuotaGate interface {
	CanUpload(ctx context.Context, userID string) (quota.Decision, error)
	IncrementUploadCount(ctx context.Context, userID string) error
	GetUserQuotaInfo(ctx context.Context, userID string) (*models.QuotaInfo, error)
}

// Publisher enqueues dispatch jobs. Implemented by queue.Queue and queue.MemoryQueue.
type Publisher interface {
	Publish(ctx context.Context, job *models.DispatchJob) error
}

// VideoCache caches video reads. Implemented by cache.Cache.
type VideoCache interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// Request is a single upload submission
type Request struct {
	UserID          string
	File            io.Reader
	FileName        string
	FileSize        int64
	Title           string
	Description     string
	TargetPlatforms []string
	Tags            []string
	Hashtags        []string
	Category        string
	Privacy         string
}

// Service implements video intake and the owner-scoped read operations
type Service struct {
	videos    database.VideoStore
	gate      QuotaGate
	files     storage.FileStore
	publisher Publisher
	cache     VideoCache
	cacheTTL  time.Duration
	limits    config.UploadConfig
	logger    *logging.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache enables read-through caching of videos
func WithCache(c VideoCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewService creates an intake service
func NewService(
	videos database.VideoStore,
	gate QuotaGate,
	files storage.FileStore,
	publisher Publisher,
	limits config.UploadConfig,
	logger *logging.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		videos:    videos,
		gate:      gate,
		files:     files,
		publisher: publisher,
		limits:    limits,
		logger:    logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadVideo validates and stores a submission and enqueues its dispatch job.
// The returned video is always pending. When only the enqueue fails the error
// wraps models.ErrEnqueueFailed and the recorded video is returned with it.
func (s *Service) UploadVideo(ctx context.Context, req *Request) (*models.Video, error) {
	span, ctx := tracing.Start(ctx, "upload.intake", opentracing.Tag{Key: "user_id", Value: req.UserID})
	defer span.Finish()

	video, err := s.upload(ctx, req)
	if err != nil {
		tracing.Fail(span, err)
		metrics.RecordUpload(outcome(err), req.FileSize)
		return video, err
	}

	span.SetTag("video_id", video.ID)
	metrics.RecordUpload(resultAccepted, req.FileSize)
	return video, nil
}

func (s *Service) upload(ctx context.Context, req *Request) (*models.Video, error) {
	targets, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	file, err := validateFile(s.limits, req.File, req.FileName, req.FileSize)
	if err != nil {
		return nil, err
	}

	decision, err := s.gate.CanUpload(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &models.QuotaError{Message: decision.Reason}
	}

	logger := s.logger.WithUserID(req.UserID)

	ref, err := s.files.Write(ctx, storage.GenerateName(req.FileName), file, req.FileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to store video file: %w", err)
	}

	video := &models.Video{
		UserID:          req.UserID,
		Title:           req.Title,
		Description:     req.Description,
		FileRef:         ref,
		Status:          models.VideoStatusPending,
		TargetPlatforms: targets,
		Metadata: metadata.MapMetadata(models.VideoDetails{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			Hashtags:    req.Hashtags,
			Category:    req.Category,
			Privacy:     req.Privacy,
		}),
		UploadResults: models.UploadResults{},
	}

	if err := s.videos.CreateVideo(ctx, video); err != nil {
		if delErr := s.files.Delete(ctx, ref); delErr != nil {
			logger.WarnWithErr("Failed to remove file of unrecorded video", delErr)
		}
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}

	logger = logger.WithVideoID(video.ID)

	if err := s.gate.IncrementUploadCount(ctx, req.UserID); err != nil {
		logger.ErrorWithErr("Failed to charge upload quota", err)
		metrics.RecordError("upload", "quota_increment")
	}

	if err := s.publisher.Publish(ctx, models.NewDispatchJob(video)); err != nil {
		logger.ErrorWithErr("Failed to enqueue dispatch job; video left pending", err)
		metrics.RecordError("upload", "enqueue")
		return video, fmt.Errorf("%w: %w", models.ErrEnqueueFailed, err)
	}

	enqueuedAt := time.Now()
	if err := s.videos.MarkVideoEnqueued(ctx, video.ID, enqueuedAt); err != nil {
		// The sweep may publish one more job for this video.
		logger.WarnWithErr("Failed to mark video enqueued", err)
	} else {
		video.EnqueuedAt = &enqueuedAt
	}

	logger.LogDispatchEvent(video.ID, "enqueued", string(video.Status), map[string]interface{}{
		"platforms": len(targets),
		"file_ref":  ref,
	})

	return video, nil
}

func validateRequest(req *Request) ([]models.Platform, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" || len(req.TargetPlatforms) == 0 {
		return nil, models.NewValidationError("Title, description, and target platforms are required")
	}
	return models.ParsePlatforms(req.TargetPlatforms)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return resultRejected
	case errors.Is(err, models.ErrQuotaExceeded):
		return resultQuotaDenied
	default:
		return resultFailed
	}
}

// GetVideo returns a video owned by userID
func (s *Service) GetVideo(ctx context.Context, userID, videoID string) (*models.Video, error) {
	if s.cache != nil {
		cached, err := s.cache.GetVideo(ctx, videoID)
		if err != nil {
			s.logger.WithVideoID(videoID).WarnWithErr("Video cache read failed", err)
		}
		metrics.RecordCacheAccess("video", cached != nil)
		if cached != nil {
			if cached.UserID != userID {
				return nil, models.NotFoundError("video", videoID)
			}
			return cached, nil
		}
	}

	video, err := s.ownedVideo(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetVideo(ctx, video, s.cacheTTL); err != nil {
			s.logger.WithVideoID(videoID).WarnWithErr("Video cache write failed", err)
		}
	}

	return video, nil
}

// ListVideos returns the user's videos, newest first
func (s *Service) ListVideos(ctx context.Context, userID string, limit int) ([]*models.Video, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.videos.ListVideosByUser(ctx, userID, limit)
}

// DeleteVideo removes a video record and, best effort, its stored file
func (s *Service) DeleteVideo(ctx context.Context, userID, videoID string) error {
	video, err := s.ownedVideo(ctx, userID, videoID)
	if err != nil {
		return err
	}

	logger := s.logger.WithUserID(userID).WithVideoID(videoID)

	exists, err := s.files.Exists(ctx, video.FileRef)
	switch {
	case err != nil:
		logger.WarnWithErr("Failed to check stored file", err)
	case exists:
		if err := s.files.Delete(ctx, video.FileRef); err != nil {
			logger.WarnWithErr("Failed to delete stored file", err)
		}
	}

	if err := s.videos.DeleteVideo(ctx, videoID); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.DeleteVideo(ctx, videoID); err != nil {
			logger.WarnWithErr("Failed to invalidate cached video", err)
		}
	}

	logger.Info("Video deleted")
	return nil
}

// QuotaInfo returns the caller's daily allowance
func (s *Service) QuotaInfo(ctx context.Context, userID string) (*models.QuotaInfo, error) {
	return s.gate.GetUserQuotaInfo(ctx, userID)
}

// Requirements returns the published short-form requirements
func (s *Service) Requirements() Requirements {
	return RequirementsFor(s.limits)
}

func (s *Service) ownedVideo(ctx context.Context, userID, videoID string) (*models.Video, error) {
	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.UserID != userID {
		return nil, models.NotFoundError("video", videoID)
	}
	return video, nil
}
