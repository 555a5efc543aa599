package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Video represents an uploaded video and its delivery state across platforms
type Video struct {
	ID              string           `json:"id" db:"id"`
	UserID          string           `json:"user_id" db:"user_id"`
	Title           string           `json:"title" db:"title"`
	Description     string           `json:"description" db:"description"`
	FileRef         string           `json:"file_ref" db:"file_ref"`
	Status          VideoStatus      `json:"status" db:"status"`
	TargetPlatforms []Platform       `json:"target_platforms" db:"target_platforms"`
	Metadata        PlatformMetadata `json:"metadata" db:"metadata"`
	UploadResults   UploadResults    `json:"upload_results" db:"upload_results"`
	EnqueuedAt      *time.Time       `json:"enqueued_at,omitempty" db:"enqueued_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// VideoStatus is the aggregate delivery state of a video
type VideoStatus string

// VideoStatus constants
const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusSuccess    VideoStatus = "success"
	VideoStatusFailed     VideoStatus = "failed"
)

// IsTerminal reports whether no further transitions are expected
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusSuccess || s == VideoStatusFailed
}

// Targets reports whether the video was submitted for the given platform
func (v *Video) Targets(p Platform) bool {
	for _, t := range v.TargetPlatforms {
		if t == p {
			return true
		}
	}
	return false
}

// UploadResult is the outcome of delivering a video to one platform
type UploadResult struct {
	Success         bool   `json:"success"`
	PlatformVideoID string `json:"platform_video_id,omitempty"`
	URL             string `json:"url,omitempty"`
	Error           string `json:"error,omitempty"`
}

// FailedResult builds a failed UploadResult from an error
func FailedResult(err error) UploadResult {
	return UploadResult{Success: false, Error: err.Error()}
}

// UploadResults maps each targeted platform to its delivery outcome
type UploadResults map[Platform]UploadResult

// AllSucceeded reports whether every target has a successful result.
// A target with no recorded result counts as a failure.
func (r UploadResults) AllSucceeded(targets []Platform) bool {
	if len(targets) == 0 {
		return false
	}
	for _, p := range targets {
		res, ok := r[p]
		if !ok || !res.Success {
			return false
		}
	}
	return true
}

// AggregateStatus derives the terminal video status from per-platform results
func (r UploadResults) AggregateStatus(targets []Platform) VideoStatus {
	if r.AllSucceeded(targets) {
		return VideoStatusSuccess
	}
	return VideoStatusFailed
}

// Value implements driver.Valuer for database storage
func (r UploadResults) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for database retrieval
func (r *UploadResults) Scan(value interface{}) error {
	if value == nil {
		*r = make(UploadResults)
		return nil
	}

	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, r)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", value)
	}
}
