package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/cache"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
)

type fakeQueue struct {
	depth, dlq int
	err        error
}

func (f *fakeQueue) GetQueueDepth() (int, error) { return f.depth, f.err }
func (f *fakeQueue) GetDLQDepth() (int, error)   { return f.dlq, f.err }

func TestCollectExportsDepths(t *testing.T) {
	m := NewMonitor(&fakeQueue{depth: 12, dlq: 2}, nil, time.Second, nil)

	require.NoError(t, m.Collect(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, 12, snap.QueueDepth)
	assert.Equal(t, 2, snap.DLQDepth)
	assert.False(t, snap.LastUpdated.IsZero())
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues(DispatchQueueLabel)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues(DeadLetterQueueLabel)))
	assert.Equal(t, HealthHealthy, m.Health())
	assert.Empty(t, m.Alerts())
}

func TestCollectReadsDispatchStats(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.New(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.IncrementStat(ctx, "dispatch_success"))
	}
	require.NoError(t, c.IncrementStat(ctx, "dispatch_failed"))

	m := NewMonitor(&fakeQueue{}, c, time.Second, nil)
	require.NoError(t, m.Collect(ctx))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.SucceededVideos)
	assert.Equal(t, int64(1), snap.FailedVideos)
	assert.InDelta(t, 0.25, snap.FailureRate(), 0.0001)
	assert.Equal(t, HealthWarning, m.Health())
	assert.Equal(t, []string{"High failure rate: 25.0%"}, m.Alerts())
}

func TestCollectError(t *testing.T) {
	m := NewMonitor(&fakeQueue{depth: 5, err: errors.New("channel closed")}, nil, time.Second, nil)

	err := m.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.True(t, m.Snapshot().LastUpdated.IsZero())
}

func TestHealthLevels(t *testing.T) {
	m := NewMonitor(&fakeQueue{depth: 1500, dlq: 150}, nil, time.Second, nil)
	require.NoError(t, m.Collect(context.Background()))

	assert.Equal(t, HealthCritical, m.Health())
	assert.Equal(t, []string{
		"High DLQ depth: 150 messages",
		"High queue depth: 1500 jobs pending",
	}, m.Alerts())
}

func TestFailureRateWithoutOutcomes(t *testing.T) {
	assert.Equal(t, 0.0, Snapshot{}.FailureRate())
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewMonitor(&fakeQueue{depth: 1}, nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Snapshot().QueueDepth == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
