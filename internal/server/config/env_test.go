package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("GOPHAUTH_SECRET_KEY", "env-secret")
	t.Setenv("GOPHAUTH_ACCESS_TOKEN_MINUTES", "42")
	t.Setenv("GOPHAUTH_SINGLE_SESSION", "true")
	t.Setenv("GOPHAUTH_SHUTDOWN_TIMEOUT", "2s")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 42, cfg.AccessTokenMinutes)
	assert.True(t, cfg.SingleSessionPerPrincipal)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "gophauth", cfg.Issuer, "unset variables keep their value")
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("GOPHAUTH_REFRESH_TOKEN_DAYS", "many")

	cfg := &Config{}
	err := parseEnv(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
