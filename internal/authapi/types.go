// Package authapi holds the JSON contract shared by the HTTP server and the
// authctl client.
package authapi

import "time"

// Routes.
const (
	PathRegister = "/api/auth/register"
	PathLogin    = "/api/auth/login"
	PathRefresh  = "/api/auth/refresh"
	PathRevoke   = "/api/auth/revoke"
	PathMe       = "/api/auth/me"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeValidation     = "validation_error"
	CodeConflict       = "conflict"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login. UserNameOrEmail matches
// either field exactly.
type LoginRequest struct {
	UserNameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// RefreshTokenRequest is the body of POST /api/auth/refresh and /revoke.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is returned by register, login and refresh.
type SessionResponse struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	UserID                string    `json:"userId"`
	UserName              string    `json:"username"`
	Email                 string    `json:"email"`
}

// MeResponse echoes the claims of the presented access token.
type MeResponse struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps every non-2xx JSON body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
