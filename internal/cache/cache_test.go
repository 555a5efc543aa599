package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := New(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestNewUnreachable(t *testing.T) {
	_, err := New("127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestHealth(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	assert.NoError(t, c.Health(ctx))

	mr.SetError("LOADING")
	assert.Error(t, c.Health(ctx))
}

func TestVideoRoundTrip(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	video := &models.Video{
		ID:              "test-video-1",
		UserID:          "user-1",
		Title:           "My clip",
		FileRef:         "abc.mp4",
		Status:          models.VideoStatusFailed,
		TargetPlatforms: []models.Platform{models.PlatformTikTok, models.PlatformYouTubeShorts},
		UploadResults: models.UploadResults{
			models.PlatformTikTok:        {Success: true, URL: "https://tiktok.com/@user/video/1"},
			models.PlatformYouTubeShorts: {Success: false, Error: "quota exceeded"},
		},
	}

	require.NoError(t, c.SetVideo(ctx, video, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, mr.TTL("video:test-video-1"))

	got, err := c.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, video.Status, got.Status)
	assert.Equal(t, "quota exceeded", got.UploadResults[models.PlatformYouTubeShorts].Error)

	require.NoError(t, c.DeleteVideo(ctx, video.ID))
	got, err = c.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVideoExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetVideo(ctx, &models.Video{ID: "expiring", Status: models.VideoStatusPending}, 30*time.Second))
	mr.FastForward(time.Minute)

	got, err := c.GetVideo(ctx, "expiring")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCorruptEntry(t *testing.T) {
	c, mr := setupTestCache(t)

	require.NoError(t, mr.Set("video:broken", "{not json"))

	_, err := c.GetVideo(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode video:broken")
}

func TestQuotaInfo(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	info, err := c.GetQuotaInfo(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, info)

	want := &models.QuotaInfo{Tier: models.TierBasic, DailyLimit: 3, Used: 1, Remaining: 2}
	require.NoError(t, c.SetQuotaInfo(ctx, "user-1", want, time.Minute))

	info, err = c.GetQuotaInfo(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, info)

	require.NoError(t, c.DeleteQuotaInfo(ctx, "user-1"))
	assert.False(t, mr.Exists("quota:user-1"))
}

func TestStats(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	value, err := c.GetStat(ctx, "dispatch_success")
	require.NoError(t, err)
	assert.Zero(t, value)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.IncrementStat(ctx, "dispatch_success"))
	}
	require.NoError(t, c.IncrementStat(ctx, "dispatch_failed"))

	value, err = c.GetStat(ctx, "dispatch_success")
	require.NoError(t, err)
	assert.Equal(t, int64(3), value)
	assert.Equal(t, "3", mr.HGet("stats", "dispatch_success"))

	all, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"dispatch_success": 3, "dispatch_failed": 1}, all)
}

func TestLocking(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	acquired, err := c.AcquireLock(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = c.AcquireLock(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "lock is already held")

	require.NoError(t, c.ReleaseLock(ctx, "reconcile"))
	assert.False(t, mr.Exists("lock:reconcile"))

	acquired, err = c.AcquireLock(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReleaseLeavesOtherHoldersLock(t *testing.T) {
	c, mr := setupTestCache(t)
	other, err := New(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer other.Close()

	ctx := context.Background()

	acquired, err := c.AcquireLock(ctx, "reconcile", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	// Our lease lapses and another process takes the lock
	mr.FastForward(2 * time.Second)
	acquired, err = other.AcquireLock(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, c.ReleaseLock(ctx, "reconcile"))
	assert.True(t, mr.Exists("lock:reconcile"), "stale holder must not free the lock")

	require.NoError(t, other.ReleaseLock(ctx, "reconcile"))
	assert.False(t, mr.Exists("lock:reconcile"))
}
