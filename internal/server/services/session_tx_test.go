package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// These tests drive the service over a real *sql.DB transaction (sqlmock)
// with fake repositories, checking commit/rollback and error translation.

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	exists    bool
	existsErr error
	createErr error

	getOut *models.User
	getErr error

	updateErr error
}

func (f *fakeUsersRepo) Create(context.Context, *models.User) error { return f.createErr }
func (f *fakeUsersRepo) ExistsByUserNameOrEmail(context.Context, string, string) (bool, error) {
	return f.exists, f.existsErr
}
func (f *fakeUsersRepo) GetByLogin(context.Context, string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}
func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.GetByLogin(ctx, id)
}
func (f *fakeUsersRepo) UpdateLastLogin(context.Context, string, time.Time) error { return f.updateErr }

type fakeRefreshRepo struct {
	createErr error

	consumeOut *models.RefreshToken
	consumeErr error

	revokeErr error
}

func (f *fakeRefreshRepo) Create(context.Context, *models.RefreshToken) error { return f.createErr }
func (f *fakeRefreshRepo) Consume(context.Context, string, time.Time) (*models.RefreshToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return f.consumeOut, nil
}
func (f *fakeRefreshRepo) Find(context.Context, string) (*models.RefreshToken, error) {
	return nil, common.ErrorNotFound
}
func (f *fakeRefreshRepo) Revoke(context.Context, string) error { return f.revokeErr }
func (f *fakeRefreshRepo) RevokeAllForUser(context.Context, string) (int64, error) {
	return 0, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

func newSQLService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *SessionService {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	issuer := auth.NewIssuer(cfg.SecretKey, cfg.Issuer, cfg.Audience, cfg.AccessTokenTTL())
	return NewSessionService(dbx.NewSQLTransactor(db), rm, issuer, cfg, logging.Discard(), nil)
}

func activeUser(password string) *models.User {
	salt := auth.GenerateSalt(auth.DefaultSaltSize)
	return &models.User{
		ID:           "u1",
		UserName:     "alice",
		Email:        "alice@x.com",
		PasswordHash: auth.HashPassword(password, salt),
		PasswordSalt: base64.StdEncoding.EncodeToString(salt),
		Role:         common.DefaultRole,
		IsActive:     true,
	}
}

func TestSQL_RegisterCommits(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	s := newSQLService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}})

	sess, err := s.Register(context.Background(), "alice", "alice@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if sess.AccessToken.Value == "" || sess.RefreshToken.Value == "" {
		t.Fatalf("empty tokens: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_RegisterUniqueViolationRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	// the pre-check passed but the insert lost the race
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorConflict}, r: &fakeRefreshRepo{}}
	s := newSQLService(t, db, rm)

	_, err := s.Register(context.Background(), "alice", "alice@x.com", "pw1")
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want ErrorConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_RefreshTokenFailureRollsBackAndHidesDetail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{createErr: errBoom{}}}
	s := newSQLService(t, db, rm)

	_, err := s.Register(context.Background(), "alice", "alice@x.com", "pw1")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
	if errors.Is(err, errBoom{}) {
		t.Fatalf("persistence detail leaked: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_LoginUnknownUserRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}, r: &fakeRefreshRepo{}}
	s := newSQLService(t, db, rm)

	_, err := s.Login(context.Background(), "ghost", "pw")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_LoginLookupErrorIsInternal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}, r: &fakeRefreshRepo{}}
	s := newSQLService(t, db, rm)

	_, err := s.Login(context.Background(), "alice", "pw")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestSQL_LoginSuccessCommits(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getOut: activeUser("pw1")}, r: &fakeRefreshRepo{}}
	s := newSQLService(t, db, rm)

	sess, err := s.Login(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if sess.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_RefreshMissingOwnerRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getErr: common.ErrorNotFound},
		r: &fakeRefreshRepo{consumeOut: &models.RefreshToken{UserID: "gone", ExpiresAt: time.Now().Add(time.Hour)}},
	}
	s := newSQLService(t, db, rm)

	_, err := s.Refresh(context.Background(), "tok")
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_RevokeUnknownCommits(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{revokeErr: common.ErrorNotFound}}
	s := newSQLService(t, db, rm)

	if err := s.Revoke(context.Background(), "nope"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSQL_RevokeDBErrorIsInternal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{revokeErr: errBoom{}}}
	s := newSQLService(t, db, rm)

	if err := s.Revoke(context.Background(), "tok"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

func TestSQL_BeginFailureIsInternal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin().WillReturnError(errBoom{})

	s := newSQLService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}})

	_, err := s.Refresh(context.Background(), "tok")
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}
