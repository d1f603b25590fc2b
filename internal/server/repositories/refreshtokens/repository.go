// Package refreshtokens declares the server-side repository contract for
// persisting opaque refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for storing, consuming, and revoking refresh tokens.
type Repository interface {
	// Create stores a new token record. ID, Token and ExpiresAt must already be set.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume atomically marks a usable token as revoked and returns the record
	// as it was before revocation. A token that is missing, already revoked, or
	// expired at now yields common.ErrorNotFound. At most one of any number of
	// concurrent calls for the same token succeeds.
	Consume(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error)

	// Find returns the record for token or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks token revoked. Unknown tokens yield common.ErrorNotFound;
	// revoking an already revoked token is not an error.
	Revoke(ctx context.Context, token string) error

	// RevokeAllForUser revokes every active token of userID and reports how many
	// were revoked.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}
