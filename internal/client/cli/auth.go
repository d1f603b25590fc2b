package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/authapi"
	"github.com/dmitrijs2005/gophauth/internal/client/authclient"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Prompt helpers, swapped out in tests.
var (
	getSimpleText  = GetSimpleText
	getPassword    = GetPassword
	getNewPassword = GetNewPassword
)

// Register prompts for a username, email and password and opens the first
// session of the new account.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return a.report("Input error", err)
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report("Input error", err)
	}
	password, err := getNewPassword(a.out)
	if err != nil {
		return a.report("Input error", err)
	}
	defer common.WipeByteArray(password)

	sess, err := a.client.Register(ctx, userName, email, string(password))
	if err != nil {
		return a.report("Registration failed", err)
	}

	a.printf("Registered %s (%s)\n", sess.UserName, sess.UserID)
	return nil
}

// Login prompts for a username or email and a password.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter username or email", a.out)
	if err != nil {
		return a.report("Input error", err)
	}
	password, err := getPassword(a.out)
	if err != nil {
		return a.report("Input error", err)
	}
	defer common.WipeByteArray(password)

	sess, err := a.client.Login(ctx, login, string(password))
	if err != nil {
		return a.report("Login failed", err)
	}

	a.printf("Logged in as %s\n", sess.UserName)
	return nil
}

// Me prints the identity carried by the current access token.
func (a *App) Me(ctx context.Context) error {
	me, err := a.client.Me(ctx)
	if err != nil {
		return a.report("Request failed", err)
	}
	a.printf("User:    %s\nEmail:   %s\nID:      %s\nRole:    %s\nExpires: %s\n",
		me.UserName, me.Email, me.UserID, me.Role, me.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

// Refresh rotates the refresh token of the current session.
func (a *App) Refresh(ctx context.Context) error {
	sess, err := a.client.Refresh(ctx)
	if err != nil {
		return a.report("Refresh failed", err)
	}
	a.printSession(sess)
	return nil
}

// Logout revokes the refresh token of the current session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return a.report("Logout failed", err)
	}
	a.printf("Logged out\n")
	return nil
}

// Status reports server reachability and the current session, if any.
func (a *App) Status(ctx context.Context) error {
	_ = a.checkOnline(ctx)

	sess := a.client.Session()
	if sess == nil {
		a.printf("Server: %s (%s)\nNot logged in\n", a.config.ServerURL, a.Mode)
		return nil
	}
	a.printf("Server: %s (%s)\n", a.config.ServerURL, a.Mode)
	a.printSession(sess)
	return nil
}

func (a *App) printSession(sess *authapi.SessionResponse) {
	a.printf("Session of %s\n  access token expires:  %s\n  refresh token expires: %s\n",
		sess.UserName,
		sess.AccessTokenExpiresAt.Local().Format(time.RFC3339),
		sess.RefreshTokenExpiresAt.Local().Format(time.RFC3339))
}

// report prints a user-facing explanation of err and returns it unchanged.
func (a *App) report(what string, err error) error {
	var msg string
	switch {
	case errors.Is(err, authclient.ErrNoSession):
		msg = "you are not logged in"
	case errors.Is(err, authclient.ErrUnavailable):
		a.setMode(ModeOffline)
		msg = "server is unavailable"
	case errors.Is(err, authclient.ErrConflict):
		msg = "username or email is already taken"
	case errors.Is(err, authclient.ErrUnauthorized):
		msg = "not authorized"
	default:
		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		} else {
			msg = err.Error()
		}
	}
	a.printf("%s: %s\n", what, msg)
	return err
}
