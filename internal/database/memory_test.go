package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Email: "u1@example.com"}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.TierBasic, user.Tier)

	err := store.CreateUser(ctx, &models.User{Email: "u1@example.com"})
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))

	byEmail, err := store.GetUserByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMemoryStore_UploadCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Email: "u1@example.com"}
	require.NoError(t, store.CreateUser(ctx, user))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementUploadCount(ctx, user.ID))
		}()
	}
	wg.Wait()

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.DailyUploadCount)

	resetAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)
	require.NoError(t, store.ResetDailyCount(ctx, user.ID, resetAt))

	got, err = store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DailyUploadCount)
	assert.True(t, got.LastResetDate.Equal(resetAt))

	assert.True(t, errors.Is(store.IncrementUploadCount(ctx, "missing"), models.ErrNotFound))
}

func TestMemoryStore_Videos(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now().Add(-time.Hour)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, store.CreateVideo(ctx, &models.Video{
			UserID:          "u1",
			Title:           title,
			TargetPlatforms: []models.Platform{models.PlatformTikTok},
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.CreateVideo(ctx, &models.Video{UserID: "u2", Title: "other"}))

	videos, err := store.ListVideosByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "third", videos[0].Title)
	assert.Equal(t, "second", videos[1].Title)
	assert.Equal(t, models.VideoStatusPending, videos[0].Status)

	// Returned values must not alias stored state
	videos[0].TargetPlatforms[0] = models.PlatformFacebookReels
	again, err := store.GetVideo(ctx, videos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformTikTok, again.TargetPlatforms[0])
}

func TestMemoryStore_UpdateVideoResult(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	video := &models.Video{UserID: "u1", TargetPlatforms: []models.Platform{models.PlatformTikTok}}
	require.NoError(t, store.CreateVideo(ctx, video))
	require.NoError(t, store.UpdateVideoStatus(ctx, video.ID, models.VideoStatusProcessing))

	results := models.UploadResults{
		models.PlatformTikTok: {Success: true, URL: "https://tiktok.com/@user/video/1"},
	}
	require.NoError(t, store.UpdateVideoResult(ctx, video.ID, models.VideoStatusSuccess, results))

	got, err := store.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusSuccess, got.Status)
	assert.True(t, got.UploadResults[models.PlatformTikTok].Success)

	err = store.UpdateVideoResult(ctx, "missing", models.VideoStatusFailed, nil)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, store.DeleteVideo(ctx, video.ID))
	_, err = store.GetVideo(ctx, video.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMemoryStore_ListStalePendingVideos(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	stale := &models.Video{UserID: "u1", Title: "stale", CreatedAt: now.Add(-time.Hour)}
	fresh := &models.Video{UserID: "u1", Title: "fresh", CreatedAt: now}
	done := &models.Video{UserID: "u1", Title: "done", Status: models.VideoStatusSuccess, CreatedAt: now.Add(-time.Hour)}
	queued := &models.Video{UserID: "u1", Title: "queued", CreatedAt: now.Add(-time.Hour)}
	for _, v := range []*models.Video{stale, fresh, done, queued} {
		require.NoError(t, store.CreateVideo(ctx, v))
	}
	require.NoError(t, store.MarkVideoEnqueued(ctx, queued.ID, now.Add(-time.Hour)))

	videos, err := store.ListStalePendingVideos(ctx, now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, stale.ID, videos[0].ID)

	got, err := store.GetVideo(ctx, queued.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EnqueuedAt)
	assert.True(t, errors.Is(store.MarkVideoEnqueued(ctx, "missing", now), models.ErrNotFound))
}

func TestMemoryStore_Connections(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expiry := time.Now().Add(time.Hour)

	conn := &models.PlatformConnection{
		UserID:         "u1",
		Platform:       models.PlatformYouTubeShorts,
		AccessToken:    "access-1",
		RefreshToken:   "refresh-1",
		TokenExpiresAt: &expiry,
	}
	require.NoError(t, store.UpsertConnection(ctx, conn))
	firstID := conn.ID

	// Re-connecting keeps one row per (user, platform) and the old refresh token
	again := &models.PlatformConnection{
		UserID:      "u1",
		Platform:    models.PlatformYouTubeShorts,
		AccessToken: "access-2",
	}
	require.NoError(t, store.UpsertConnection(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := store.GetActiveConnection(ctx, "u1", models.PlatformYouTubeShorts)
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)

	newExpiry := time.Now().Add(2 * time.Hour)
	require.NoError(t, store.UpdateTokens(ctx, "u1", models.PlatformYouTubeShorts, models.TokenSet{
		AccessToken: "access-3",
		ExpiresAt:   &newExpiry,
	}))
	got, err = store.GetActiveConnection(ctx, "u1", models.PlatformYouTubeShorts)
	require.NoError(t, err)
	assert.Equal(t, "access-3", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, got.TokenExpiresAt.Equal(newExpiry))

	usedAt := time.Now()
	require.NoError(t, store.TouchLastUsed(ctx, "u1", models.PlatformYouTubeShorts, usedAt))
	got, err = store.GetActiveConnection(ctx, "u1", models.PlatformYouTubeShorts)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)

	require.NoError(t, store.DeactivateConnection(ctx, "u1", models.PlatformYouTubeShorts))
	_, err = store.GetActiveConnection(ctx, "u1", models.PlatformYouTubeShorts)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = store.UpdateTokens(ctx, "u1", models.PlatformYouTubeShorts, models.TokenSet{AccessToken: "x"})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMemoryStore_OTPs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateOTP(ctx, &models.OTP{Email: "a@example.com", Code: "111111", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.CreateOTP(ctx, &models.OTP{Email: "a@example.com", Code: "222222", ExpiresAt: time.Now().Add(time.Minute)}))

	otp, err := store.GetLatestOTP(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", otp.Code)

	require.NoError(t, store.DeleteOTPs(ctx, "a@example.com"))
	_, err = store.GetLatestOTP(ctx, "a@example.com")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
