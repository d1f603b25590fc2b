// Package authclient talks to the gophauth HTTP API.
//
// HTTPClient keeps the current session in memory. Calls that need an access
// token retry once after rotating the refresh token when the server answers
// 401, so an expired access token is renewed transparently.
//
// Failures are reported with sentinel errors that callers match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrConflict, ErrValidation.
// The full server reply is available through *APIError.
package authclient
