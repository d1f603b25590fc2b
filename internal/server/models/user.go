package models

import "time"

// User is the authenticated principal. Username and Email are unique and
// never change once stored; LastLoginAt is the only field updated in place.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	PasswordSalt string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
