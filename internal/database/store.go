package database

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// UserStore persists users and their daily quota counters
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ResetDailyCount zeroes the counter and stamps lastResetDate in one write
	ResetDailyCount(ctx context.Context, id string, at time.Time) error
	IncrementUploadCount(ctx context.Context, id string) error
}

// VideoStore persists videos and their delivery state
type VideoStore interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideosByUser(ctx context.Context, userID string, limit int) ([]*models.Video, error)
	UpdateVideoStatus(ctx context.Context, id string, status models.VideoStatus) error
	// UpdateVideoResult writes status and uploadResults together in a single statement
	UpdateVideoResult(ctx context.Context, id string, status models.VideoStatus, results models.UploadResults) error
	DeleteVideo(ctx context.Context, id string) error
	// MarkVideoEnqueued records that a dispatch job for the video reached the queue
	MarkVideoEnqueued(ctx context.Context, id string, at time.Time) error
	// ListStalePendingVideos returns pending videos created before the cutoff that were never enqueued
	ListStalePendingVideos(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Video, error)
}

// ConnectionStore persists OAuth connections, one per (user, platform)
type ConnectionStore interface {
	UpsertConnection(ctx context.Context, conn *models.PlatformConnection) error
	GetActiveConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error)
	UpdateTokens(ctx context.Context, userID string, platform models.Platform, tokens models.TokenSet) error
	TouchLastUsed(ctx context.Context, userID string, platform models.Platform, at time.Time) error
	DeactivateConnection(ctx context.Context, userID string, platform models.Platform) error
}

// OTPStore persists email verification codes
type OTPStore interface {
	CreateOTP(ctx context.Context, otp *models.OTP) error
	GetLatestOTP(ctx context.Context, email string) (*models.OTP, error)
	DeleteOTPs(ctx context.Context, email string) error
}

// Store is the full record store
type Store interface {
	UserStore
	VideoStore
	ConnectionStore
	OTPStore
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
