// Package common defines shared constants and sentinel errors used across
// the gophauth server and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Token errors: a malformed, badly signed or expired access token, or a
	// refresh token that is unknown, revoked or expired.
	ErrInvalidToken = errors.New("invalid token")
)
