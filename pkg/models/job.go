package models

import (
	"time"
)

// DispatchJob is the queued unit of work "deliver this video to these platforms"
type DispatchJob struct {
	VideoID         string     `json:"video_id"`
	UserID          string     `json:"user_id"`
	TargetPlatforms []Platform `json:"target_platforms"`
	EnqueuedAt      time.Time  `json:"enqueued_at"`
	Attempt         int        `json:"attempt,omitempty"`
}

// NewDispatchJob builds the job for a freshly created video
func NewDispatchJob(video *Video) *DispatchJob {
	targets := make([]Platform, len(video.TargetPlatforms))
	copy(targets, video.TargetPlatforms)

	return &DispatchJob{
		VideoID:         video.ID,
		UserID:          video.UserID,
		TargetPlatforms: targets,
		EnqueuedAt:      time.Now(),
	}
}
