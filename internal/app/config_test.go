package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmusaev/feedline/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "feedline", cfg.Database.Username)
	require.Equal(t, "feedline_prod", cfg.Database.Name)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "feedline-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.Equal(t, 12*time.Hour, cfg.Auth.Verification.CodeTTL)
	require.Equal(t, 8, cfg.Auth.Verification.CodeLength)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "feedline", cfg.Auth.JWT.Issuer)
	require.Equal(t, 24*time.Hour, cfg.Auth.Verification.CodeTTL)
	require.Equal(t, 6, cfg.Auth.Verification.CodeLength)
	require.False(t, cfg.Email.SMTP.Enabled)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: "issuer",
				TTL:    30 * time.Minute,
			},
			Session: SessionSettings{
				RefreshTTL:    10 * time.Hour,
				RefreshLength: 32,
			},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, jwtCfg)

	sessionCfg := cfg.Auth.SessionServiceConfig()
	require.Equal(t, auth.SessionConfig{
		RefreshTokenTTL: 10 * time.Hour,
		RefreshLength:   32,
	}, sessionCfg)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, auth.DefaultRefreshTokenTTL, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 48, sessionCfg.RefreshLength)

	require.Empty(t, cfg.VerificationOptions())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestApplyRuntimeDefaults(t *testing.T) {
	cfg := &Config{}
	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, generated["auth.jwt.secret"])
	require.NotEmpty(t, cfg.Auth.JWT.Secret)

	// A configured secret is left untouched.
	again, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, again)
}
