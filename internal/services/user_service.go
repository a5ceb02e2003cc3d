package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/pkg/crypto"
	apperrors "github.com/tmusaev/feedline/pkg/errors"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = errors.New("user service: user not found")

// RegisterInput captures the fields accepted when registering an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsStaff  bool
}

// UserService is the account store: registration, lookup, and activation.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register provisions a new inactive account with a hashed password.
//
// Email and username uniqueness are enforced by the storage layer, so two
// concurrent registrations with the same email cannot both succeed; the loser
// observes the same ErrEmailTaken / ErrUsernameTaken as a validation-time
// duplicate would.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsActive: false,
		IsStaff:  input.IsStaff,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, s.classifyDuplicate(ctx, username, email)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// classifyDuplicate decides which unique index a failed insert collided with.
func (s *UserService) classifyDuplicate(ctx context.Context, username, email string) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(email) = ?", email).
		Count(&count).Error; err == nil && count > 0 {
		return apperrors.ErrEmailTaken
	}
	return apperrors.ErrUsernameTaken
}

// FindByIdentifier resolves an account by email when the identifier contains
// an "@", otherwise by username. Both lookups are case-insensitive.
func (s *UserService) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	query := s.db.WithContext(ctx)
	if strings.Contains(identifier, "@") {
		query = query.Where("LOWER(email) = LOWER(?)", identifier)
	} else {
		query = query.Where("LOWER(username) = LOWER(?)", identifier)
	}

	var user models.User
	if err := query.Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: find by identifier: %w", err)
	}

	return &user, nil
}

// GetByID fetches an account by primary key. A non-UUID id cannot match and
// would trip a scan error on the postgres driver, so it is treated as
// not-found up front.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if uuid.Validate(id) != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// Activate flips is_active to true. Calling it on an already active account
// is a no-op.
func (s *UserService) Activate(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	if uuid.Validate(userID) != nil {
		return ErrUserNotFound
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_active", true)
	if result.Error != nil {
		return fmt.Errorf("user service: activate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err == nil && count == 0 {
			return ErrUserNotFound
		}
	}
	return nil
}
