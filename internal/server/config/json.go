package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Fields are pointers so that a key
// missing from the file leaves the current value alone.
type JsonConfig struct {
	HTTPAddr                  *string         `json:"http_addr"`
	DatabaseDSN               *string         `json:"database_dsn"`
	SecretKey                 *string         `json:"secret_key"`
	Issuer                    *string         `json:"issuer"`
	Audience                  *string         `json:"audience"`
	AccessTokenMinutes        *int            `json:"access_token_minutes"`
	RefreshTokenDays          *int            `json:"refresh_token_days"`
	SingleSessionPerPrincipal *bool           `json:"single_session_per_principal"`
	LogLevel                  *string         `json:"log_level"`
	OTelEndpoint              *string         `json:"otel_endpoint"`
	MigrateOnStart            *bool           `json:"migrate_on_start"`
	ShutdownTimeout           *timex.Duration `json:"shutdown_timeout"`
}

// parseJSON loads the file named by -c/-config in args into cfg.
// No flag means no file and no changes.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c.applyTo(cfg)
	return nil
}

func (c *JsonConfig) applyTo(cfg *Config) {
	setIf(&cfg.HTTPAddr, c.HTTPAddr)
	setIf(&cfg.DatabaseDSN, c.DatabaseDSN)
	setIf(&cfg.SecretKey, c.SecretKey)
	setIf(&cfg.Issuer, c.Issuer)
	setIf(&cfg.Audience, c.Audience)
	setIf(&cfg.AccessTokenMinutes, c.AccessTokenMinutes)
	setIf(&cfg.RefreshTokenDays, c.RefreshTokenDays)
	setIf(&cfg.SingleSessionPerPrincipal, c.SingleSessionPerPrincipal)
	setIf(&cfg.LogLevel, c.LogLevel)
	setIf(&cfg.OTelEndpoint, c.OTelEndpoint)
	setIf(&cfg.MigrateOnStart, c.MigrateOnStart)
	if c.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
