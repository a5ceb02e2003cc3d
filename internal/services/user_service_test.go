package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmusaev/feedline/internal/database/testutil"
	"github.com/tmusaev/feedline/pkg/crypto"
	apperrors "github.com/tmusaev/feedline/pkg/errors"
)

func TestUserRegisterStartsInactive(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "maria",
		Email:    "Maria@Example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.False(t, user.IsActive)
	require.Equal(t, "maria@example.com", user.Email)
	require.NotEqual(t, "super-secret", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "super-secret"))
}

func TestUserRegisterDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "first",
		Email:    "shared@example.com",
		Password: "password-one",
	})
	require.NoError(t, err)

	// Same address with different casing still collides.
	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "second",
		Email:    "Shared@Example.COM",
		Password: "password-two",
	})
	require.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestUserRegisterDuplicateUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "taken",
		Email:    "one@example.com",
		Password: "password-one",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "taken",
		Email:    "two@example.com",
		Password: "password-two",
	})
	require.ErrorIs(t, err, apperrors.ErrUsernameTaken)
}

func TestUserFindByIdentifier(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	created, err := svc.Register(context.Background(), RegisterInput{
		Username: "lookup",
		Email:    "lookup@example.com",
		Password: "password-one",
	})
	require.NoError(t, err)

	byEmail, err := svc.FindByIdentifier(context.Background(), "Lookup@Example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	byUsername, err := svc.FindByIdentifier(context.Background(), "LOOKUP")
	require.NoError(t, err)
	require.Equal(t, created.ID, byUsername.ID)

	// The presence of "@" routes the lookup to email, never username.
	_, err = svc.FindByIdentifier(context.Background(), "lookup@")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.FindByIdentifier(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserLookupRejectsMalformedID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	// Malformed ids must read as not-found on every driver; postgres would
	// otherwise fail the uuid comparison outright.
	_, err = svc.GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrUserNotFound)

	require.ErrorIs(t, svc.Activate(context.Background(), "not-a-uuid"), ErrUserNotFound)
}

func TestUserActivateIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "activate",
		Email:    "activate@example.com",
		Password: "password-one",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Activate(context.Background(), user.ID))
	require.NoError(t, svc.Activate(context.Background(), user.ID))

	reloaded, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsActive)

	require.ErrorIs(t, svc.Activate(context.Background(), "missing-id"), ErrUserNotFound)
}
