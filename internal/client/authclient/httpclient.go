package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/authapi"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session *authapi.SessionResponse
}

// NewHTTPClient returns a client for the server at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Register(ctx context.Context, userName, email, password string) (*authapi.SessionResponse, error) {
	req := authapi.RegisterRequest{UserName: userName, Email: email, Password: password}
	return c.openSession(ctx, authapi.PathRegister, req)
}

func (c *HTTPClient) Login(ctx context.Context, login, password string) (*authapi.SessionResponse, error) {
	req := authapi.LoginRequest{UserNameOrEmail: login, Password: password}
	return c.openSession(ctx, authapi.PathLogin, req)
}

// Refresh rotates the stored refresh token.
func (c *HTTPClient) Refresh(ctx context.Context) (*authapi.SessionResponse, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNoSession
	}
	return c.openSession(ctx, authapi.PathRefresh, authapi.RefreshTokenRequest{RefreshToken: sess.RefreshToken})
}

// Logout revokes the stored refresh token and forgets the session.
func (c *HTTPClient) Logout(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return ErrNoSession
	}
	req := authapi.RefreshTokenRequest{RefreshToken: sess.RefreshToken}
	if err := c.do(ctx, http.MethodPost, authapi.PathRevoke, "", req, nil); err != nil {
		return err
	}
	c.setSession(nil)
	return nil
}

// Me returns the identity behind the current access token, refreshing the
// session once if the token was rejected.
func (c *HTTPClient) Me(ctx context.Context) (*authapi.MeResponse, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNoSession
	}

	var me authapi.MeResponse
	err := c.do(ctx, http.MethodGet, authapi.PathMe, sess.AccessToken, nil, &me)
	if errors.Is(err, ErrUnauthorized) {
		sess, err = c.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		err = c.do(ctx, http.MethodGet, authapi.PathMe, sess.AccessToken, nil, &me)
	}
	if err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, authapi.PathHealth, "", nil, nil)
}

// Session returns a copy of the current session or nil.
func (c *HTTPClient) Session() *authapi.SessionResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *HTTPClient) setSession(s *authapi.SessionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *HTTPClient) openSession(ctx context.Context, path string, body any) (*authapi.SessionResponse, error) {
	var sess authapi.SessionResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &sess); err != nil {
		return nil, err
	}
	c.setSession(&sess)
	s := sess
	return &s, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var er authapi.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.kind = ErrUnauthorized
	case http.StatusConflict:
		apiErr.kind = ErrConflict
	case http.StatusBadRequest:
		apiErr.kind = ErrValidation
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.kind = ErrUnavailable
	}
	return apiErr
}
