package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Reset metrics
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/videos", "200", 0.123)

	// Verify counter incremented
	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/videos", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordUpload(t *testing.T) {
	UploadsTotal.Reset()

	RecordUpload("accepted", 5*1024*1024)
	RecordUpload("quota_exceeded", 0)
	RecordUpload("accepted", 2*1024*1024)

	accepted := testutil.ToFloat64(UploadsTotal.WithLabelValues("accepted"))
	if accepted != 2.0 {
		t.Errorf("Expected accepted counter to be 2.0, got %f", accepted)
	}

	denied := testutil.ToFloat64(UploadsTotal.WithLabelValues("quota_exceeded"))
	if denied != 1.0 {
		t.Errorf("Expected quota_exceeded counter to be 1.0, got %f", denied)
	}
}

func TestRecordQuotaDenied(t *testing.T) {
	QuotaDeniedTotal.Reset()

	RecordQuotaDenied("basic")
	RecordQuotaDenied("basic")

	if got := testutil.ToFloat64(QuotaDeniedTotal.WithLabelValues("basic")); got != 2.0 {
		t.Errorf("Expected basic denials to be 2.0, got %f", got)
	}
}

func TestRecordDispatchJob(t *testing.T) {
	DispatchJobsTotal.Reset()

	RecordDispatchJob("success", 12.5)
	RecordDispatchJob("failed", 3.1)

	if got := testutil.ToFloat64(DispatchJobsTotal.WithLabelValues("success")); got != 1.0 {
		t.Errorf("Expected success counter to be 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(DispatchJobsTotal.WithLabelValues("failed")); got != 1.0 {
		t.Errorf("Expected failed counter to be 1.0, got %f", got)
	}
}

func TestRecordPlatformUpload(t *testing.T) {
	PlatformUploadsTotal.Reset()
	PlatformUploadDuration.Reset()

	RecordPlatformUpload("tiktok", true, 4.2)
	RecordPlatformUpload("facebook_reels", false, 0.01)

	if got := testutil.ToFloat64(PlatformUploadsTotal.WithLabelValues("tiktok", "success")); got != 1.0 {
		t.Errorf("Expected tiktok success to be 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(PlatformUploadsTotal.WithLabelValues("facebook_reels", "failure")); got != 1.0 {
		t.Errorf("Expected facebook failure to be 1.0, got %f", got)
	}
}

func TestRecordTokenRefresh(t *testing.T) {
	TokenRefreshTotal.Reset()

	RecordTokenRefresh("youtube_shorts", true)
	RecordTokenRefresh("youtube_shorts", false)

	if got := testutil.ToFloat64(TokenRefreshTotal.WithLabelValues("youtube_shorts", "failure")); got != 1.0 {
		t.Errorf("Expected refresh failure to be 1.0, got %f", got)
	}
}

func TestRecordReconciled(t *testing.T) {
	before := testutil.ToFloat64(ReconciledVideosTotal)

	RecordReconciled(3)

	if got := testutil.ToFloat64(ReconciledVideosTotal) - before; got != 3.0 {
		t.Errorf("Expected reconciled delta 3.0, got %f", got)
	}
}

func TestUpdateQueueDepth(t *testing.T) {
	UpdateQueueDepth("dispatch_jobs", 7)

	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("dispatch_jobs")); got != 7.0 {
		t.Errorf("Expected queue depth 7, got %f", got)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHitsTotal.Reset()
	CacheMissesTotal.Reset()

	RecordCacheAccess("video", true)
	RecordCacheAccess("video", true)
	RecordCacheAccess("video", false)

	hits := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("video"))
	if hits != 2.0 {
		t.Errorf("Expected cache hits to be 2.0, got %f", hits)
	}

	misses := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("video"))
	if misses != 1.0 {
		t.Errorf("Expected cache misses to be 1.0, got %f", misses)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("dispatch", "update_failed")

	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("dispatch", "update_failed")); got != 1.0 {
		t.Errorf("Expected error counter to be 1.0, got %f", got)
	}
}

func TestServerProbes(t *testing.T) {
	var dbErr error
	srv := NewServer(0, nil,
		Check{Name: "postgres", Probe: func(context.Context) error { return dbErr }},
		Check{Name: "rabbitmq", Probe: func(context.Context) error { return nil }},
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Unexpected liveness response: %d %q", rec.Code, rec.Body.String())
	}

	rec := get("/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected ready, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "{\"postgres\":\"ok\",\"rabbitmq\":\"ok\"}\n" {
		t.Errorf("Unexpected readiness body: %q", rec.Body.String())
	}

	dbErr = errors.New("connection refused")
	rec = get("/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when a check fails, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("Expected failure reason in body, got %q", rec.Body.String())
	}

	if rec := get("/metrics"); rec.Code != http.StatusOK {
		t.Errorf("Expected metrics endpoint, got %d", rec.Code)
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordHTTPRequest("GET", "/api/videos", "200", 0.1)
	}
}

func BenchmarkRecordPlatformUpload(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordPlatformUpload("tiktok", true, 1.5)
	}
}
