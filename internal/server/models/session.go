package models

import "time"

// IssuedToken is a token value together with the moment it stops being valid.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Session is the transient result of Register, Login and Refresh. It is
// returned to the caller and never persisted.
type Session struct {
	AccessToken  IssuedToken
	RefreshToken IssuedToken
	UserID       string
	UserName     string
	Email        string
}
