package models

import "time"

// Session is an anonymous bearer session issued by POST /auth/anonymous or
// POST /auth/refresh. ExpiresAt is in Unix seconds.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ExpiresWithin reports whether the session expires before now+buffer.
func (s Session) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return now.Add(buffer).Unix() >= s.ExpiresAt
}
