package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/database/testutil"
	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/internal/services"
)

func TestCleanerRunOncePurgesSessions(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	current := time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cleanup-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           func() time.Time { return current },
	})
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)
	user, err := users.Register(context.Background(), services.RegisterInput{
		Username: "cleanup",
		Email:    "cleanup@example.com",
		Password: "password-one",
	})
	require.NoError(t, err)

	verifications, err := services.NewVerificationService(db, users, nil,
		services.WithClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	_, _, err = sessions.CreateSession(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)
	record, err := verifications.IssueCode(context.Background(), user)
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)

	cleaner := NewCleaner(sessions, WithNow(func() time.Time { return current }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.EqualValues(t, 0, sessionCount)

	// Verification records are an audit trail and are never purged, even long
	// after their expiry.
	var stored models.EmailVerification
	require.NoError(t, db.Take(&stored, "id = ?", record.ID).Error)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cleanup-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	cleaner := NewCleaner(sessions, WithSessionSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop in time")
	}
}
