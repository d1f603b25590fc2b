package authclient

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/authapi"
)

type Client interface {
	Register(ctx context.Context, userName, email, password string) (*authapi.SessionResponse, error)
	Login(ctx context.Context, login, password string) (*authapi.SessionResponse, error)
	Refresh(ctx context.Context) (*authapi.SessionResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*authapi.MeResponse, error)
	Ping(ctx context.Context) error
	Session() *authapi.SessionResponse
}
