package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/cache"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/queue"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, job *models.DispatchJob) error {
	return m.Called(ctx, job).Error(0)
}

var sweepNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *database.MemoryStore, status models.VideoStatus, age time.Duration) *models.Video {
	t.Helper()
	video := &models.Video{
		UserID:          "u1",
		Title:           "clip",
		FileRef:         "clip.mp4",
		Status:          status,
		TargetPlatforms: []models.Platform{models.PlatformTikTok},
		CreatedAt:       sweepNow.Add(-age),
	}
	require.NoError(t, store.CreateVideo(context.Background(), video))
	return video
}

func newSweeper(store database.VideoStore, publisher Publisher, locker Locker) *Sweeper {
	s := NewSweeper(store, publisher, locker, Config{Interval: time.Minute, StaleAge: 15 * time.Minute}, nil)
	s.now = func() time.Time { return sweepNow }
	return s
}

func TestSweepRepublishesStalePending(t *testing.T) {
	store := database.NewMemoryStore()
	stale := seed(t, store, models.VideoStatusPending, time.Hour)
	seed(t, store, models.VideoStatusPending, time.Minute)
	seed(t, store, models.VideoStatusSuccess, time.Hour)
	seed(t, store, models.VideoStatusProcessing, time.Hour)

	q := queue.NewMemoryQueue(10, 0, nil)
	n, err := newSweeper(store, q, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, q.Pending())

	got, err := store.GetVideo(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusPending, got.Status)
}

func TestSweepPublishesOncePerVideo(t *testing.T) {
	store := database.NewMemoryStore()
	stale := seed(t, store, models.VideoStatusPending, time.Hour)
	ctx := context.Background()

	q := queue.NewMemoryQueue(10, 0, nil)
	s := newSweeper(store, q, nil)
	for i := 0; i < 6; i++ {
		_, err := s.Sweep(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.Pending())

	got, err := store.GetVideo(ctx, stale.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EnqueuedAt)
	assert.Equal(t, sweepNow, *got.EnqueuedAt)
}

func TestSweepSkipsQueuedBacklog(t *testing.T) {
	store := database.NewMemoryStore()
	video := seed(t, store, models.VideoStatusPending, 20*time.Minute)
	ctx := context.Background()

	// Intake published the job, but no worker has picked it up yet
	q := queue.NewMemoryQueue(10, 0, nil)
	require.NoError(t, q.Publish(ctx, models.NewDispatchJob(video)))
	require.NoError(t, store.MarkVideoEnqueued(ctx, video.ID, sweepNow.Add(-20*time.Minute)))

	s := newSweeper(store, q, nil)
	for i := 0; i < 6; i++ {
		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
	assert.Equal(t, 1, q.Pending())
}

func TestSweepStopsOnPublishError(t *testing.T) {
	store := database.NewMemoryStore()
	seed(t, store, models.VideoStatusPending, 2*time.Hour)
	seed(t, store, models.VideoStatusPending, time.Hour)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	n, err := newSweeper(store, publisher, nil).Sweep(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	publisher.AssertExpectations(t)
}

func TestSweepHonorsLock(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.New(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer c.Close()

	store := database.NewMemoryStore()
	seed(t, store, models.VideoStatusPending, time.Hour)
	q := queue.NewMemoryQueue(10, 0, nil)
	ctx := context.Background()

	held, err := c.AcquireLock(ctx, lockName, time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	n, err := newSweeper(store, q, c).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.ReleaseLock(ctx, lockName))
	n, err = newSweeper(store, q, c).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists("lock:"+lockName))
}

func TestStartStop(t *testing.T) {
	store := database.NewMemoryStore()
	q := queue.NewMemoryQueue(10, 0, nil)
	s := NewSweeper(store, q, nil, Config{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()
}
