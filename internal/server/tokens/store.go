// Package tokens issues and redeems opaque refresh tokens.
//
// A refresh token is 64 random bytes, base64 encoded, stored server side and
// usable exactly once. Redeeming it marks it revoked in the same statement
// that reads it.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenSize is the number of random bytes in a refresh token value.
const TokenSize = 64

type Store struct {
	repos repomanager.RepositoryManager
	ttl   time.Duration

	now      func() time.Time
	newValue func() (string, error)
}

func NewStore(repos repomanager.RepositoryManager, ttl time.Duration) *Store {
	return &Store{
		repos:    repos,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		newValue: func() (string, error) { return common.MakeRandBase64String(TokenSize) },
	}
}

// Issue creates and persists a fresh token for userID.
func (s *Store) Issue(ctx context.Context, db dbx.DBTX, userID string) (*models.RefreshToken, error) {
	value, err := s.newValue()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	t := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repos.RefreshTokens(db).Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Consume redeems value. Absent, revoked or expired tokens yield
// common.ErrInvalidToken.
func (s *Store) Consume(ctx context.Context, db dbx.DBTX, value string) (*models.RefreshToken, error) {
	if value == "" {
		return nil, common.ErrInvalidToken
	}
	t, err := s.repos.RefreshTokens(db).Consume(ctx, value, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	return t, nil
}

// Revoke marks value revoked. Unknown values are ignored.
func (s *Store) Revoke(ctx context.Context, db dbx.DBTX, value string) error {
	if value == "" {
		return nil
	}
	err := s.repos.RefreshTokens(db).Revoke(ctx, value)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// RevokeAllForUser revokes every active token of userID.
func (s *Store) RevokeAllForUser(ctx context.Context, db dbx.DBTX, userID string) (int64, error) {
	return s.repos.RefreshTokens(db).RevokeAllForUser(ctx, userID)
}
