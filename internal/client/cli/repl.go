package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Me(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
}

var errUnknownCommand = errors.New("unknown command")

// Root runs the REPL on the App's reader until EOF or "exit".
func (a *App) Root(ctx context.Context) {
	a.printf("Welcome to authctl (type 'help' for commands)\n")
	_ = a.checkOnline(ctx)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) dispatch(ctx context.Context, cmd string) error {
	return execCommand(ctx, a, cmd, a.out)
}

// runREPL reads one command per line from r and dispatches it to e. Command
// errors are reported by the handlers themselves and do not stop the loop.
func runREPL(ctx context.Context, e execIface, statusFn func() string, r *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "authctl %s> ", statusFn())

		line, err := r.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) > 0 {
			switch parts[0] {
			case "exit", "quit":
				fmt.Fprintln(w, "Bye!")
				return
			default:
				_ = execCommand(ctx, e, parts[0], w)
			}
		}
		if err != nil {
			fmt.Fprintln(w)
			return
		}
	}
}

func execCommand(ctx context.Context, e execIface, cmd string, w io.Writer) error {
	switch cmd {
	case "help":
		if e.isLoggedIn() {
			fmt.Fprintln(w, "Available commands: me, refresh, status, logout, exit")
		} else {
			fmt.Fprintln(w, "Available commands: register, login, status, exit")
		}
		return nil
	case "register":
		return e.Register(ctx)
	case "login":
		return e.Login(ctx)
	case "me":
		return e.Me(ctx)
	case "refresh":
		return e.Refresh(ctx)
	case "logout", "revoke":
		return e.Logout(ctx)
	case "status":
		return e.Status(ctx)
	default:
		fmt.Fprintln(w, "Unknown command:", cmd)
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}
