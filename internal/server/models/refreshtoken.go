package models

import "time"

// RefreshToken is one issued renewal credential. It moves from active to
// revoked exactly once; expiry is checked on read and never stored as a state.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsRevoked bool
}

// Usable reports whether the token may still be exchanged at moment now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
