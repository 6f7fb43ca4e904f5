package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPValidity is how long a one-time code stays usable after issuance.
const OTPValidity = 10 * time.Minute

// OTP is a one-time code proving control of an email address, used to
// authorize a password reset. At most one row exists per email; issuing a
// new code deletes any prior one.
type OTP struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Code       string    `json:"-"` // never serialized back to the client
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsVerified bool      `json:"is_verified"`
}

// IsExpired checks if the code has expired.
func (o *OTP) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
