// Package services contains server-side business logic. This file implements
// SessionService, which registers principals, verifies credentials and issues
// access/refresh token pairs, rotating refresh tokens on every use.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/gophauth/internal/server/services"

// Operation names used in logs, spans and metrics.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpRefresh  = "refresh"
	OpRevoke   = "revoke"
)

// SessionService is the session state machine. Every operation runs as a
// single unit of work through the Transactor, so a session is either fully
// persisted or not at all.
//
// Errors returned to callers are one of common.ErrorValidation,
// common.ErrorConflict, common.ErrorUnauthorized or common.ErrorInternal.
type SessionService struct {
	tx            dbx.Transactor
	repomanager   repomanager.RepositoryManager
	issuer        *auth.Issuer
	tokens        *tokens.Store
	singleSession bool

	logger  logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	now func() time.Time
	// verified against when the login identifier is unknown
	dummySalt []byte
}

// NewSessionService wires a SessionService. m may be nil.
func NewSessionService(tx dbx.Transactor, rm repomanager.RepositoryManager, issuer *auth.Issuer,
	cfg *config.Config, logger logging.Logger, m *metrics.Metrics) *SessionService {
	return &SessionService{
		tx:            tx,
		repomanager:   rm,
		issuer:        issuer,
		tokens:        tokens.NewStore(rm, cfg.RefreshTokenTTL()),
		singleSession: cfg.SingleSessionPerPrincipal,
		logger:        logger.With("component", "sessions"),
		metrics:       m,
		tracer:        otel.Tracer(tracerName),
		now:           func() time.Time { return time.Now().UTC() },
		dummySalt:     auth.GenerateSalt(auth.DefaultSaltSize),
	}
}

// Register creates a principal and opens its first session. A taken username
// or email yields common.ErrorConflict, including when a concurrent
// registration wins the race after the pre-check.
func (s *SessionService) Register(ctx context.Context, userName, email, password string) (sess *models.Session, err error) {
	ctx, done := s.begin(ctx, OpRegister)
	defer func() { err = done(err) }()

	if err := validateRegistration(userName, email, password); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		exists, err := users.ExistsByUserNameOrEmail(ctx, userName, email)
		if err != nil {
			return fmt.Errorf("existence check: %w", err)
		}
		if exists {
			return common.ErrorConflict
		}

		salt := auth.GenerateSalt(auth.DefaultSaltSize)
		user := &models.User{
			ID:           uuid.NewString(),
			UserName:     userName,
			Email:        email,
			PasswordHash: auth.HashPassword(password, salt),
			PasswordSalt: base64.StdEncoding.EncodeToString(salt),
			Role:         common.DefaultRole,
			IsActive:     true,
			CreatedAt:    s.now(),
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrorConflict
			}
			return fmt.Errorf("create user: %w", err)
		}

		sess, err = s.createSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", sess.UserID)
	return sess, nil
}

// Login verifies a username-or-email and password pair. Every failure cause
// yields the same common.ErrorUnauthorized.
func (s *SessionService) Login(ctx context.Context, login, password string) (sess *models.Session, err error) {
	ctx, done := s.begin(ctx, OpLogin)
	defer func() { err = done(err) }()

	if strings.TrimSpace(login) == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", common.ErrorValidation)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		user, err := users.GetByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// keep the timing of unknown and known identifiers close
				auth.VerifyPassword(password, s.dummySalt, "")
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("lookup user: %w", err)
		}

		if !s.checkPassword(user, password) || !user.IsActive {
			return common.ErrorUnauthorized
		}

		if err := users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
			return fmt.Errorf("update last login: %w", err)
		}

		sess, err = s.createSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", sess.UserID)
	return sess, nil
}

// Refresh redeems a refresh token for a brand-new session. The presented
// token is revoked in the same unit of work that issues its replacement.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (sess *models.Session, err error) {
	ctx, done := s.begin(ctx, OpRefresh)
	defer func() { err = done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		rt, err := s.tokens.Consume(ctx, tx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("consume refresh token: %w", err)
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("lookup user: %w", err)
		}
		if !user.IsActive {
			return common.ErrorUnauthorized
		}

		sess, err = s.createSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "session refreshed", "user_id", sess.UserID)
	return sess, nil
}

// Revoke invalidates a refresh token. Unknown and already revoked tokens are
// not an error.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) (err error) {
	ctx, done := s.begin(ctx, OpRevoke)
	defer func() { err = done(err) }()

	return s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.tokens.Revoke(ctx, tx, refreshToken); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		return nil
	})
}

// createSession mints an access token and persists a new refresh token for
// user on the caller's transaction.
func (s *SessionService) createSession(ctx context.Context, tx dbx.DBTX, user *models.User) (*models.Session, error) {
	if s.singleSession {
		n, err := s.tokens.RevokeAllForUser(ctx, tx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("revoke previous sessions: %w", err)
		}
		if n > 0 {
			s.logger.Debug(ctx, "previous sessions revoked", "user_id", user.ID, "count", n)
		}
	}

	rt, err := s.tokens.Issue(ctx, tx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	access, accessExp, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &models.Session{
		AccessToken:  models.IssuedToken{Value: access, ExpiresAt: accessExp},
		RefreshToken: models.IssuedToken{Value: rt.Token, ExpiresAt: rt.ExpiresAt},
		UserID:       user.ID,
		UserName:     user.UserName,
		Email:        user.Email,
	}, nil
}

func (s *SessionService) checkPassword(user *models.User, password string) bool {
	salt, err := base64.StdEncoding.DecodeString(user.PasswordSalt)
	if err != nil {
		return false
	}
	return auth.VerifyPassword(password, salt, user.PasswordHash)
}

// begin opens a span for op and returns the function that closes it. The
// closer records the outcome and collapses unexpected errors into
// common.ErrorInternal after logging them.
func (s *SessionService) begin(ctx context.Context, op string) (context.Context, func(error) error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "SessionService."+op,
		trace.WithAttributes(attribute.String("auth.operation", op)))

	return ctx, func(err error) error {
		defer span.End()

		outcome := outcomeOf(err)
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
		span.SetAttributes(attribute.String("auth.outcome", outcome))

		switch outcome {
		case metrics.OutcomeSuccess:
			return nil
		case metrics.OutcomeError:
			s.logger.Error(ctx, "session operation failed", "op", op, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "internal error")
			return common.ErrorInternal
		default:
			s.logger.Warn(ctx, "session operation rejected", "op", op, "outcome", outcome)
			return err
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrorValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, common.ErrorConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, common.ErrorUnauthorized):
		return metrics.OutcomeUnauthorized
	default:
		return metrics.OutcomeError
	}
}

func validateRegistration(userName, email, password string) error {
	switch {
	case strings.TrimSpace(userName) == "":
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	case !strings.Contains(email, "@"):
		return fmt.Errorf("%w: a valid email is required", common.ErrorValidation)
	case password == "":
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	return nil
}
