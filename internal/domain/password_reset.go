package domain

import "time"

// PasswordReset is a one-time credential handed to the account owner. Only
// its hash is stored.
type PasswordReset struct {
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
