package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// serverFlags lists the flags owned by the server config. Everything else on
// the command line is left for other consumers.
var serverFlags = []string{"-a", "-d", "-s", "-i", "-u", "-t", "-r", "-l", "-single-session"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-d string        PostgreSQL DSN
//	-s string        access token HMAC secret
//	-i string        access token issuer
//	-u string        access token audience
//	-t int           access token lifetime, minutes
//	-r int           refresh token lifetime, days
//	-l string        log level
//	-single-session  keep at most one active refresh token per principal
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.Issuer, "i", cfg.Issuer, "access token issuer")
	fs.StringVar(&cfg.Audience, "u", cfg.Audience, "access token audience")
	fs.IntVar(&cfg.AccessTokenMinutes, "t", cfg.AccessTokenMinutes, "access token lifetime (in minutes)")
	fs.IntVar(&cfg.RefreshTokenDays, "r", cfg.RefreshTokenDays, "refresh token lifetime (in days)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.SingleSessionPerPrincipal, "single-session", cfg.SingleSessionPerPrincipal, "one active refresh token per principal")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
