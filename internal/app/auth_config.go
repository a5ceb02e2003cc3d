package app

import (
	"github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SessionServiceConfig converts AuthConfig into SessionService parameters.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	ttl := c.Session.RefreshTTL
	if ttl <= 0 {
		ttl = auth.DefaultRefreshTokenTTL
	}

	length := c.Session.RefreshLength
	if length <= 0 {
		length = 48
	}

	return auth.SessionConfig{
		RefreshTokenTTL: ttl,
		RefreshLength:   length,
	}
}

// VerificationOptions converts AuthConfig into VerificationService options.
func (c AuthConfig) VerificationOptions() []services.VerificationOption {
	var opts []services.VerificationOption
	if c.Verification.CodeTTL > 0 {
		opts = append(opts, services.WithCodeExpiry(c.Verification.CodeTTL))
	}
	if c.Verification.CodeLength > 0 {
		opts = append(opts, services.WithCodeLength(c.Verification.CodeLength))
	}
	return opts
}
