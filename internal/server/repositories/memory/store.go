// Package memory keeps users and refresh tokens in process memory. It honours
// the same uniqueness and single-use rules as the Postgres repositories and is
// used by tests and by the server when no database DSN is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Store is the shared state behind the repositories. A single mutex guards
// both collections.
type Store struct {
	mu sync.Mutex

	users   map[string]models.User
	byName  map[string]string
	byEmail map[string]string

	tokens map[string]models.RefreshToken
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]models.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
		tokens:  make(map[string]models.RefreshToken),
	}
}

// Users returns a users repository over the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// RefreshTokens returns a refresh token repository over the store.
func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s: s} }

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return common.ErrorConflict
	}
	if _, ok := r.s.byName[user.UserName]; ok {
		return common.ErrorConflict
	}
	if _, ok := r.s.byEmail[user.Email]; ok {
		return common.ErrorConflict
	}

	r.s.users[user.ID] = *user
	r.s.byName[user.UserName] = user.ID
	r.s.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, nameTaken := r.s.byName[userName]
	_, emailTaken := r.s.byEmail[email]
	return nameTaken || emailTaken, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byName[login]
	if !ok {
		id, ok = r.s.byEmail[login]
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.s.userCopy(id)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.userCopy(id)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	at = at.UTC()
	u.LastLoginAt = &at
	r.s.users[id] = u
	return nil
}

// SetActive toggles a user's active flag. There is no such operation on the
// Postgres side; tests use it to simulate administrative deactivation.
func (r *UserRepository) SetActive(id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = active
	r.s.users[id] = u
	return nil
}

// caller holds mu
func (s *Store) userCopy(id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return &u, nil
}

type RefreshTokenRepository struct {
	s *Store
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[t.Token]; ok {
		return common.ErrorConflict
	}
	if _, ok := r.s.users[t.UserID]; !ok {
		// mirrors the foreign key on refresh_tokens.user_id
		return common.ErrorNotFound
	}
	r.s.tokens[t.Token] = *t
	return nil
}

func (r *RefreshTokenRepository) Consume(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok || !t.Usable(now) {
		return nil, common.ErrorNotFound
	}
	prev := t
	t.IsRevoked = true
	r.s.tokens[token] = t
	return &prev, nil
}

func (r *RefreshTokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return common.ErrorNotFound
	}
	t.IsRevoked = true
	r.s.tokens[token] = t
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, t := range r.s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			r.s.tokens[k] = t
			n++
		}
	}
	return n, nil
}
