package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/internal/services"
	"github.com/tmusaev/feedline/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the identifier/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountInactive signals correct credentials for an account that has
	// not completed email verification.
	ErrAccountInactive = errors.New("auth: account inactive")
)

// placeholderHash is a bcrypt hash of a random throwaway value. When no
// account resolves for an identifier we still run a compare against it, so
// the response shape and timing do not reveal whether the account exists.
const placeholderHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialsConfig tunes the credential gate.
type CredentialsConfig struct {
	Clock func() time.Time
}

// AuthenticateInput contains the data required to authenticate a user.
type AuthenticateInput struct {
	Identifier string
	Password   string
}

// CredentialGate authenticates an identifier/password pair against the
// account store and decides whether a session may be established.
type CredentialGate struct {
	db    *gorm.DB
	users *services.UserService
	clock func() time.Time
}

// NewCredentialGate builds the gate from the account store dependencies.
func NewCredentialGate(db *gorm.DB, users *services.UserService, cfg CredentialsConfig) (*CredentialGate, error) {
	if db == nil {
		return nil, errors.New("credential gate: db is required")
	}
	if users == nil {
		return nil, errors.New("credential gate: user service is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &CredentialGate{db: db, users: users, clock: clock}, nil
}

// Authenticate resolves the identifier via the dual email-or-username rule
// and verifies the password. Inactive accounts are rejected with
// ErrAccountInactive only after the password verified, so the distinguished
// failure never doubles as a credential oracle for wrong passwords.
func (g *CredentialGate) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := g.users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, services.ErrUserNotFound) {
		// Burn a compare so unknown identifiers cost the same as wrong passwords.
		crypto.VerifyPassword(placeholderHash, input.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credential gate: resolve identifier: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	now := g.clock()
	if err := g.db.WithContext(ctx).Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("credential gate: record login: %w", err)
	}
	user.LastLoginAt = &now

	return user, nil
}
