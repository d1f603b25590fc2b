// Package users declares the persistence contract for principals and its
// PostgreSQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores principals. Username and email must be unique at the
// storage level: Create reports a duplicate with common.ErrorConflict even
// when a concurrent insert slipped past ExistsByUserNameOrEmail.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error)

	// GetByLogin matches login against username or email. Missing users
	// yield common.ErrorNotFound.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
