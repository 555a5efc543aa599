package models

import (
	"time"
)

// OTP is a one-time passcode issued during email verification.
// Issuance and verification live outside this service; only storage is provided here.
type OTP struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Code      string    `json:"-" db:"code"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the code can no longer be used
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
