package models

import (
	"time"
)

// PlatformConnection holds the OAuth credentials a user granted for one platform.
// There is at most one row per (UserID, Platform).
type PlatformConnection struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	Platform         Platform   `json:"platform" db:"platform"`
	AccessToken      string     `json:"-" db:"access_token"`
	RefreshToken     string     `json:"-" db:"refresh_token"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty" db:"token_expires_at"`
	PlatformUserID   string     `json:"platform_user_id,omitempty" db:"platform_user_id"`
	PlatformUsername string     `json:"platform_username,omitempty" db:"platform_username"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	LastUsed         *time.Time `json:"last_used,omitempty" db:"last_used"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// ExpiresWithin reports whether the access token expires before now+d.
// A connection without a recorded expiry is treated as expiring.
func (c *PlatformConnection) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.TokenExpiresAt == nil {
		return true
	}
	return c.TokenExpiresAt.Before(now.Add(d))
}

// TokenSet is the credential material returned by a platform token endpoint
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// ConnectionStatus is the per-platform connection summary shown to a user
type ConnectionStatus struct {
	Platform  Platform `json:"platform"`
	Connected bool     `json:"connected"`
}
