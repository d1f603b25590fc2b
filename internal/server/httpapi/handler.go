// Package httpapi exposes the session service over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/authapi"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// SessionManager is the part of services.SessionService the handlers need.
type SessionManager interface {
	Register(ctx context.Context, userName, email, password string) (*models.Session, error)
	Login(ctx context.Context, login, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// TokenVerifier checks access tokens presented as bearer credentials.
type TokenVerifier interface {
	ParseAccessToken(token string) (*auth.Claims, error)
}

type Handler struct {
	sessions SessionManager
	verifier TokenVerifier
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewHandler builds the HTTP handler. m may be nil, in which case /metrics
// answers 404.
func NewHandler(sessions SessionManager, verifier TokenVerifier, logger logging.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		sessions: sessions,
		verifier: verifier,
		logger:   logger.With("component", "http"),
		metrics:  m,
	}
}

// Routes returns the fully wrapped router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+authapi.PathRegister, h.handleRegister)
	mux.HandleFunc("POST "+authapi.PathLogin, h.handleLogin)
	mux.HandleFunc("POST "+authapi.PathRefresh, h.handleRefresh)
	mux.HandleFunc("POST "+authapi.PathRevoke, h.handleRevoke)
	mux.Handle("GET "+authapi.PathMe, h.requireBearer(http.HandlerFunc(h.handleMe)))

	mux.HandleFunc("GET "+authapi.PathHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET "+authapi.PathMetrics, h.metrics.Handler())

	return h.withRequestLogging(mux)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authapi.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, authapi.CodeInvalidRequest, "malformed JSON body")
		return
	}

	sess, err := h.sessions.Register(r.Context(), req.UserName, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authapi.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, authapi.CodeInvalidRequest, "malformed JSON body")
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.UserNameOrEmail, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authapi.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, authapi.CodeInvalidRequest, "malformed JSON body")
		return
	}

	sess, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req authapi.RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, authapi.CodeInvalidRequest, "malformed JSON body")
		return
	}

	if err := h.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, authapi.CodeUnauthorized, "missing access token")
		return
	}

	resp := authapi.MeResponse{
		UserID:   claims.Subject,
		UserName: claims.UserName,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps the service error kinds onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, authapi.CodeValidation, err.Error())
	case errors.Is(err, common.ErrorConflict):
		writeError(w, http.StatusConflict, authapi.CodeConflict, "username or email already registered")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, authapi.CodeUnauthorized, "invalid credentials")
	default:
		writeError(w, http.StatusInternalServerError, authapi.CodeInternal, "internal error")
	}
}

func newSessionResponse(s *models.Session) authapi.SessionResponse {
	return authapi.SessionResponse{
		AccessToken:           s.AccessToken.Value,
		AccessTokenExpiresAt:  s.AccessToken.ExpiresAt,
		RefreshToken:          s.RefreshToken.Value,
		RefreshTokenExpiresAt: s.RefreshToken.ExpiresAt,
		UserID:                s.UserID,
		UserName:              s.UserName,
		Email:                 s.Email,
	}
}
