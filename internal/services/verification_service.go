package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/pkg/crypto"
	"github.com/tmusaev/feedline/pkg/logger"
	"github.com/tmusaev/feedline/pkg/mail"
)

const (
	defaultCodeExpiry = 24 * time.Hour
	defaultCodeLength = 6
)

var (
	// ErrCodeInvalid indicates no live code matches the submission.
	ErrCodeInvalid = errors.New("verification: invalid code")
	// ErrCodeExpired indicates the matching code is past its expiry.
	ErrCodeExpired = errors.New("verification: expired code")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithCodeExpiry overrides the code lifetime.
func WithCodeExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithCodeLength adjusts the number of characters in generated codes.
func WithCodeLength(n int) VerificationOption {
	return func(s *VerificationService) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService manages the account activation state machine: issuing
// one-time email codes and consuming them to activate accounts.
type VerificationService struct {
	db         *gorm.DB
	users      *UserService
	mailer     mail.Mailer
	expiry     time.Duration
	codeLength int
	now        func() time.Time
}

// NewVerificationService constructs a verification service with the provided dependencies.
func NewVerificationService(db *gorm.DB, users *UserService, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}
	if users == nil {
		return nil, errors.New("verification service: user service is required")
	}

	service := &VerificationService{
		db:         db,
		users:      users,
		mailer:     mailer,
		expiry:     defaultCodeExpiry,
		codeLength: defaultCodeLength,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueCode creates a fresh verification record for the user and emails the
// code best-effort. Each call creates an independent record; earlier unused
// codes stay valid until they individually expire or are consumed.
func (s *VerificationService) IssueCode(ctx context.Context, user *models.User) (*models.EmailVerification, error) {
	ctx = ensureContext(ctx)

	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, errors.New("verification service: user is required")
	}

	code, err := crypto.GenerateCode(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("verification service: generate code: %w", err)
	}

	verification := &models.EmailVerification{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).Create(verification).Error; err != nil {
		return nil, fmt.Errorf("verification service: create record: %w", err)
	}

	s.deliverCode(ctx, user.Email, code)

	return verification, nil
}

// Resend issues a new code for the account. Outstanding codes are not
// invalidated; several live codes may coexist.
func (s *VerificationService) Resend(ctx context.Context, userID string) (*models.EmailVerification, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.IssueCode(ctx, user)
}

// Verify consumes a submitted code and activates the account.
//
// An already active account verifies as a no-op regardless of the code. An
// expired match is rejected without being consumed. Consuming the record and
// activating the account happen inside one transaction, with a guarded
// update on is_used so that two concurrent submissions of the same code
// produce exactly one success.
func (s *VerificationService) Verify(ctx context.Context, userID, code string) error {
	ctx = ensureContext(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsActive {
		return nil
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeInvalid
	}

	var record models.EmailVerification
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND is_used = ?", user.ID, code, false).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("verification service: find record: %w", err)
	}

	if s.now().After(record.ExpiresAt) {
		return ErrCodeExpired
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed := tx.Model(&models.EmailVerification{}).
			Where("id = ? AND is_used = ?", record.ID, false).
			Update("is_used", true)
		if consumed.Error != nil {
			return fmt.Errorf("verification service: consume record: %w", consumed.Error)
		}
		if consumed.RowsAffected == 0 {
			// A concurrent submission won the race.
			return ErrCodeInvalid
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("is_active", true).Error; err != nil {
			return fmt.Errorf("verification service: activate account: %w", err)
		}
		return nil
	})
}

// deliverCode emails the plain code to the recipient. Delivery failures are
// logged and never fail the calling operation.
func (s *VerificationService) deliverCode(ctx context.Context, email, code string) {
	if s.mailer == nil {
		return
	}

	message := mail.Message{
		To:      []string{email},
		Subject: "Email verification code",
		Body:    fmt.Sprintf("Your verification code: %s\n", code),
	}
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrDisabled) {
		logger.WithModule("verification").Warn("verification email delivery failed",
			zap.String("email", email),
			zap.Error(err),
		)
	}
}
