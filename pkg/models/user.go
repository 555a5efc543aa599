package models

import (
	"time"
)

// User represents a registered uploader
type User struct {
	ID               string    `json:"id" db:"id"`
	Email            string    `json:"email" db:"email"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	Phone            string    `json:"phone,omitempty" db:"phone"`
	Tier             UserTier  `json:"tier" db:"tier"`
	IsEmailVerified  bool      `json:"is_email_verified" db:"is_email_verified"`
	DailyUploadCount int       `json:"daily_upload_count" db:"daily_upload_count"`
	LastResetDate    time.Time `json:"last_reset_date" db:"last_reset_date"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// UserTier is a subscription level
type UserTier string

// UserTier constants
const (
	TierBasic      UserTier = "basic"
	TierPremium    UserTier = "premium"
	TierEnterprise UserTier = "enterprise"
)

// UnlimitedUploads marks a tier without a daily cap
const UnlimitedUploads = -1

// TierLimits is the static allowance attached to a tier.
// Features are informational and not enforced by the upload pipeline.
type TierLimits struct {
	DailyUploadLimit int      `json:"daily_upload_limit"`
	Features         []string `json:"features"`
}

// Unlimited reports whether the tier has no daily cap
func (l TierLimits) Unlimited() bool {
	return l.DailyUploadLimit == UnlimitedUploads
}

var tierLimits = map[UserTier]TierLimits{
	TierBasic: {
		DailyUploadLimit: 3,
		Features:         []string{"basic_metadata", "custom_thumbnails", "standard_support"},
	},
	TierPremium: {
		DailyUploadLimit: 5,
		Features: []string{
			"basic_metadata", "custom_thumbnails", "advanced_settings", "subtitles",
			"video_chapters", "end_screens", "scheduled_uploads", "video_templates",
			"priority_support",
		},
	},
	TierEnterprise: {
		DailyUploadLimit: UnlimitedUploads,
		Features: []string{
			"basic_metadata", "custom_thumbnails", "advanced_settings", "subtitles",
			"video_chapters", "end_screens", "scheduled_uploads", "video_templates",
			"custom_workflows", "deep_analytics", "api_access", "custom_features",
			"dedicated_support",
		},
	},
}

// LimitsFor returns the limits for a tier. Unknown tiers get basic limits.
func LimitsFor(tier UserTier) TierLimits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierBasic]
}

// IsValid reports whether t is a known tier
func (t UserTier) IsValid() bool {
	_, ok := tierLimits[t]
	return ok
}

// QuotaInfo is the caller-facing view of a user's daily allowance.
// Remaining is -1 when the tier is unlimited.
type QuotaInfo struct {
	Tier       UserTier `json:"tier"`
	DailyLimit int      `json:"daily_limit"`
	Used       int      `json:"used"`
	Remaining  int      `json:"remaining"`
}
