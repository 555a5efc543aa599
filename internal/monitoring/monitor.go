package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
)

// Alert thresholds
const (
	QueueDepthWarning = 1000
	DLQDepthCritical  = 100
	FailureRateAlert  = 0.1
)

// Queue labels on the depth gauge
const (
	DispatchQueueLabel   = "dispatch_jobs"
	DeadLetterQueueLabel = "dispatch_jobs_dlq"
)

// Health levels reported by Monitor.Health
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Snapshot holds the latest dispatch pipeline figures
type Snapshot struct {
	QueueDepth      int       `json:"queue_depth"`
	DLQDepth        int       `json:"dlq_depth"`
	SucceededVideos int64     `json:"succeeded_videos"`
	FailedVideos    int64     `json:"failed_videos"`
	LastUpdated     time.Time `json:"last_updated"`
}

// FailureRate is the share of dispatched videos that ended failed
func (s Snapshot) FailureRate() float64 {
	total := s.SucceededVideos + s.FailedVideos
	if total == 0 {
		return 0
	}
	return float64(s.FailedVideos) / float64(total)
}

// QueueProvider defines the interface for queue metrics
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// StatsProvider reads dispatch outcome counters. Implemented by cache.Cache.
type StatsProvider interface {
	GetStat(ctx context.Context, stat string) (int64, error)
}

// Monitor polls queue depths and dispatch counters and exports them as gauges
type Monitor struct {
	queue    QueueProvider
	stats    StatsProvider
	interval time.Duration
	logger   *logging.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMonitor creates a new monitoring service. stats may be nil.
func NewMonitor(queue QueueProvider, stats StatsProvider, interval time.Duration, logger *logging.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		queue:    queue,
		stats:    stats,
		interval: interval,
		logger:   logging.OrNop(logger),
	}
}

// Run collects figures every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.Collect(ctx); err != nil {
			m.logger.WarnWithErr("Failed to collect pipeline metrics", err)
		}
		for _, alert := range m.Alerts() {
			m.logger.Warn(alert)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect refreshes the snapshot once
func (m *Monitor) Collect(ctx context.Context) error {
	queueDepth, err := m.queue.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("failed to get queue depth: %w", err)
	}

	dlqDepth, err := m.queue.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("failed to get DLQ depth: %w", err)
	}

	snap := Snapshot{QueueDepth: queueDepth, DLQDepth: dlqDepth, LastUpdated: time.Now()}

	if m.stats != nil {
		if snap.SucceededVideos, err = m.stats.GetStat(ctx, "dispatch_success"); err != nil {
			return fmt.Errorf("failed to get dispatch stats: %w", err)
		}
		if snap.FailedVideos, err = m.stats.GetStat(ctx, "dispatch_failed"); err != nil {
			return fmt.Errorf("failed to get dispatch stats: %w", err)
		}
	}

	metrics.UpdateQueueDepth(DispatchQueueLabel, queueDepth)
	metrics.UpdateQueueDepth(DeadLetterQueueLabel, dlqDepth)

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
	return nil
}

// Snapshot returns the latest figures
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Health summarizes the snapshot as healthy, warning or critical
func (m *Monitor) Health() string {
	snap := m.Snapshot()

	switch {
	case snap.DLQDepth > DLQDepthCritical:
		return HealthCritical
	case snap.QueueDepth > QueueDepthWarning, snap.FailureRate() > FailureRateAlert:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// Alerts returns current system alerts
func (m *Monitor) Alerts() []string {
	snap := m.Snapshot()

	var alerts []string

	if snap.DLQDepth > DLQDepthCritical {
		alerts = append(alerts, fmt.Sprintf("High DLQ depth: %d messages", snap.DLQDepth))
	}

	if snap.QueueDepth > QueueDepthWarning {
		alerts = append(alerts, fmt.Sprintf("High queue depth: %d jobs pending", snap.QueueDepth))
	}

	if rate := snap.FailureRate(); rate > FailureRateAlert {
		alerts = append(alerts, fmt.Sprintf("High failure rate: %.1f%%", rate*100))
	}

	return alerts
}
