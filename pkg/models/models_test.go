package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadResultsValue(t *testing.T) {
	results := UploadResults{
		PlatformTikTok: {Success: true, PlatformVideoID: "tt_1", URL: "https://tiktok.com/@user/video/tt_1"},
	}

	value, err := results.Value()
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}

	var decoded map[string]map[string]interface{}
	if err := json.Unmarshal(value.([]byte), &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if decoded["tiktok"]["success"] != true {
		t.Errorf("Expected tiktok success=true, got %v", decoded["tiktok"]["success"])
	}
}

func TestUploadResultsScan(t *testing.T) {
	var results UploadResults
	err := results.Scan([]byte(`{"youtube_shorts":{"success":false,"error":"boom"}}`))
	require.NoError(t, err)

	assert.False(t, results[PlatformYouTubeShorts].Success)
	assert.Equal(t, "boom", results[PlatformYouTubeShorts].Error)
}

func TestUploadResultsScanNil(t *testing.T) {
	var results UploadResults
	if err := results.Scan(nil); err != nil {
		t.Fatalf("Failed to scan nil: %v", err)
	}

	if results == nil || len(results) != 0 {
		t.Error("Expected empty results after scanning nil")
	}
}

func TestAggregateStatus(t *testing.T) {
	targets := []Platform{PlatformTikTok, PlatformYouTubeShorts}

	tests := []struct {
		name    string
		results UploadResults
		want    VideoStatus
	}{
		{
			name: "all succeeded",
			results: UploadResults{
				PlatformTikTok:        {Success: true},
				PlatformYouTubeShorts: {Success: true},
			},
			want: VideoStatusSuccess,
		},
		{
			name: "one failed",
			results: UploadResults{
				PlatformTikTok:        {Success: true, URL: "https://tiktok.com/x"},
				PlatformYouTubeShorts: {Success: false, Error: "quota"},
			},
			want: VideoStatusFailed,
		},
		{
			name: "missing result",
			results: UploadResults{
				PlatformTikTok: {Success: true},
			},
			want: VideoStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.results.AggregateStatus(targets))
		})
	}
}

func TestParsePlatforms(t *testing.T) {
	platforms, err := ParsePlatforms([]string{"tiktok", "youtube_shorts", "tiktok"})
	require.NoError(t, err)
	assert.Equal(t, []Platform{PlatformTikTok, PlatformYouTubeShorts}, platforms)

	_, err = ParsePlatforms([]string{"tiktok", "myspace", "vine"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "myspace, vine")

	_, err = ParsePlatforms(nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLimitsFor(t *testing.T) {
	assert.Equal(t, 3, LimitsFor(TierBasic).DailyUploadLimit)
	assert.Equal(t, 5, LimitsFor(TierPremium).DailyUploadLimit)
	assert.True(t, LimitsFor(TierEnterprise).Unlimited())
	assert.Equal(t, 3, LimitsFor(UserTier("gold")).DailyUploadLimit)
}

func TestConnectionExpiresWithin(t *testing.T) {
	now := time.Now()
	soon := now.Add(2 * time.Minute)
	later := now.Add(time.Hour)

	assert.True(t, (&PlatformConnection{TokenExpiresAt: &soon}).ExpiresWithin(now, 5*time.Minute))
	assert.False(t, (&PlatformConnection{TokenExpiresAt: &later}).ExpiresWithin(now, 5*time.Minute))
	assert.True(t, (&PlatformConnection{}).ExpiresWithin(now, 5*time.Minute))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(&QuotaError{Message: "limit"}, ErrQuotaExceeded))
	assert.True(t, errors.Is(NotFoundError("video", "v1"), ErrNotFound))
	assert.True(t, errors.Is(NotConnectedError(PlatformTikTok), ErrNotConnected))
	assert.True(t, errors.Is(NotImplementedError(PlatformFacebookReels), ErrNotImplemented))
	assert.Equal(t, "Facebook integration is not yet complete", NotImplementedError(PlatformFacebookReels).Error())
	assert.Equal(t, "video v1 not found", NotFoundError("video", "v1").Error())
	assert.True(t, errors.Is(NewValidationError("bad"), ErrValidation))
}
