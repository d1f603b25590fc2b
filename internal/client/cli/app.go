package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/authclient"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	client authclient.Client
	reader *bufio.Reader
	out    io.Writer
	Mode   Mode
}

// NewApp builds an App talking HTTP to c.ServerURL on the process stdio.
func NewApp(c *config.Config) *App {
	return newApp(c, authclient.NewHTTPClient(c.ServerURL, c.RequestTimeout), os.Stdin, os.Stdout)
}

func newApp(c *config.Config, client authclient.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: client, reader: bufio.NewReader(in), out: out}
}

// Run executes args as a single command, or starts the REPL when args is empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.dispatch(ctx, args[0])
	}
	a.Root(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.client.Session() != nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.printf("Switched to %s mode\n", mode)
	}
}

// checkOnline pings the server and records the result in a.Mode.
func (a *App) checkOnline(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	return nil
}

func (a *App) getStatus() string {
	s := ""
	if sess := a.client.Session(); sess != nil {
		s = sess.UserName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
