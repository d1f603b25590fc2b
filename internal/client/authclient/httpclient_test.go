package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/authapi"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	issuer := auth.NewIssuer(cfg.SecretKey, cfg.Issuer, cfg.Audience, cfg.AccessTokenTTL())
	svc := services.NewSessionService(dbx.NoTx{}, repomanager.NewMemoryRepositoryManager(), issuer, cfg, logging.Discard(), nil)
	srv := httptest.NewServer(httpapi.NewHandler(svc, issuer, logging.Discard(), nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FullFlow(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := NewHTTPClient(srv.URL+"/", 5*time.Second)

	require.NoError(t, c.Ping(ctx))

	reg, err := c.Register(ctx, "alice", "alice@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.UserName)

	_, err = c.Register(ctx, "alice", "alice@x.com", "pw1")
	assert.ErrorIs(t, err, ErrConflict)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, authapi.CodeConflict, apiErr.Code)

	sess, err := c.Login(ctx, "alice@x.com", "pw1")
	require.NoError(t, err)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, me.UserID)

	rotated, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, rotated.RefreshToken, c.Session().RefreshToken)

	require.NoError(t, c.Logout(ctx))
	assert.Nil(t, c.Session())

	_, err = c.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_BadCredentials(t *testing.T) {
	srv := newServer(t)
	c := NewHTTPClient(srv.URL, 5*time.Second)

	_, err := c.Login(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, c.Session())

	_, err = c.Register(context.Background(), "bob", "no-at", "pw")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClient_MeRefreshesOnce(t *testing.T) {
	var meCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+authapi.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authapi.SessionResponse{AccessToken: "old", RefreshToken: "r1", UserID: "u1"})
	})
	mux.HandleFunc("POST "+authapi.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var req authapi.RefreshTokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(authapi.SessionResponse{AccessToken: "new", RefreshToken: "r2", UserID: "u1"})
	})
	mux.HandleFunc("GET "+authapi.PathMe, func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		if r.Header.Get(common.AuthorizationHeaderName) != common.BearerPrefix+"new" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authapi.ErrorResponse{Error: authapi.ErrorBody{Code: authapi.CodeUnauthorized, Message: "expired"}})
			return
		}
		_ = json.NewEncoder(w).Encode(authapi.MeResponse{UserID: "u1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.UserID)
	assert.EqualValues(t, 2, meCalls.Load())
	assert.EqualValues(t, 1, refreshCalls.Load())
	assert.Equal(t, "r2", c.Session().RefreshToken)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestClient_NoSession(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second)
	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, c.Logout(context.Background()), ErrNoSession)
}
