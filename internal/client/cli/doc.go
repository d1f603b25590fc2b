// Package cli provides the interactive authctl command-line client.
//
// It wires configuration and an authclient.Client into a small REPL that can
// register, log in, inspect the current identity, rotate the refresh token
// and log out. A single command may also be passed as arguments, in which
// case it runs once and the program exits.
//
// Commands:
//   - register / login
//   - me, refresh, status
//   - logout
//   - help, exit
package cli
