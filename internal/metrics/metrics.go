package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "multiuploader_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Intake Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_uploads_total",
			Help: "Total number of upload submissions by outcome",
		},
		[]string{"result"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "multiuploader_upload_size_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 10), // 1MB to 512MB
		},
	)

	QuotaDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_quota_denied_total",
			Help: "Total number of uploads rejected by the daily quota",
		},
		[]string{"tier"},
	)

	// Dispatch Metrics
	DispatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_dispatch_jobs_total",
			Help: "Total number of dispatch jobs by final video status",
		},
		[]string{"status"},
	)

	DispatchJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multiuploader_dispatch_jobs_in_progress",
			Help: "Number of dispatch jobs currently being processed",
		},
	)

	DispatchJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "multiuploader_dispatch_job_duration_seconds",
			Help:    "Dispatch job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
		},
	)

	PlatformUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_platform_uploads_total",
			Help: "Total number of per-platform deliveries by result",
		},
		[]string{"platform", "result"},
	)

	PlatformUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "multiuploader_platform_upload_duration_seconds",
			Help:    "Per-platform delivery duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		},
		[]string{"platform"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_token_refresh_total",
			Help: "Total number of OAuth token refreshes by result",
		},
		[]string{"platform", "result"},
	)

	ReconciledVideosTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "multiuploader_reconciled_videos_total",
			Help: "Total number of stale pending videos re-enqueued",
		},
	)

	// Queue Metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multiuploader_queue_depth",
			Help: "Number of messages waiting per queue",
		},
		[]string{"queue"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiuploader_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordUpload records an intake outcome; size is observed only for accepted uploads
func RecordUpload(result string, sizeBytes int64) {
	UploadsTotal.WithLabelValues(result).Inc()
	if result == "accepted" {
		UploadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordQuotaDenied records a quota gate denial
func RecordQuotaDenied(tier string) {
	QuotaDeniedTotal.WithLabelValues(tier).Inc()
}

// RecordDispatchJob records a finished dispatch job
func RecordDispatchJob(status string, duration float64) {
	DispatchJobsTotal.WithLabelValues(status).Inc()
	DispatchJobDuration.Observe(duration)
}

// RecordPlatformUpload records one platform delivery
func RecordPlatformUpload(platform string, success bool, duration float64) {
	PlatformUploadsTotal.WithLabelValues(platform, resultLabel(success)).Inc()
	PlatformUploadDuration.WithLabelValues(platform).Observe(duration)
}

// RecordTokenRefresh records an OAuth refresh attempt
func RecordTokenRefresh(platform string, success bool) {
	TokenRefreshTotal.WithLabelValues(platform, resultLabel(success)).Inc()
}

// RecordReconciled records videos re-enqueued by the sweeper
func RecordReconciled(count int) {
	ReconciledVideosTotal.Add(float64(count))
}

// UpdateQueueDepth sets the depth gauge for a queue
func UpdateQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordCacheAccess records cache hit/miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
