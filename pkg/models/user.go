package models

import "time"

// User is an anonymous account created by POST /auth/anonymous.
type User struct {
	ID        string    `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionRecord is the server-side row behind an issued Session. Only bcrypt
// hashes of the tokens are stored; the prefixes narrow the hash comparison.
type SessionRecord struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	TokenPrefix      string     `db:"token_prefix"`
	TokenHash        string     `db:"token_hash"`
	RefreshPrefix    string     `db:"refresh_prefix"`
	RefreshHash      string     `db:"refresh_hash"`
	ExpiresAt        time.Time  `db:"expires_at"`
	RefreshExpiresAt time.Time  `db:"refresh_expires_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

// Active reports whether the access token may still be used at now.
func (s *SessionRecord) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Refreshable reports whether the refresh token may still be used at now.
func (s *SessionRecord) Refreshable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.RefreshExpiresAt)
}
