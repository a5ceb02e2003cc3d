package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/database/testutil"
	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/internal/services"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	users  *services.UserService
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	users, err := services.NewUserService(db)
	require.NoError(t, err)
	verifications, err := services.NewVerificationService(db, users, nil)
	require.NoError(t, err)
	posts, err := services.NewPostService(db)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret", Issuer: "feedline"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	gate, err := iauth.NewCredentialGate(db, users, iauth.CredentialsConfig{})
	require.NoError(t, err)

	router, err := NewRouter(Deps{
		DB:            db,
		JWT:           jwtSvc,
		Sessions:      sessions,
		Gate:          gate,
		Users:         users,
		Verifications: verifications,
		Posts:         posts,
	})
	require.NoError(t, err)

	return &testEnv{db: db, router: router, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func (e *testEnv) register(t *testing.T, username, email, password string) string {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         username,
		"email":            email,
		"password":         password,
		"password_confirm": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.User.ID)
	return data.User.ID
}

func (e *testEnv) latestCode(t *testing.T, userID string) string {
	t.Helper()

	var record models.EmailVerification
	require.NoError(t, e.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&record).Error)
	return record.Code
}

func (e *testEnv) login(t *testing.T, identifier, password string) (string, string) {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Tokens.AccessToken)
	return data.Tokens.AccessToken, data.Tokens.RefreshToken
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	userID := env.register(t, "flow", "flow@example.com", "password-one")

	// Login before verification is rejected with the distinguished code.
	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "flow@example.com",
		"password":   "password-one",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "ACCOUNT_INACTIVE", resp.Error.Code)

	code := env.latestCode(t, userID)
	rec, resp = env.do(t, http.MethodPost, "/api/auth/verify/"+userID, "", gin.H{"code": code})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	access, _ := env.login(t, "flow@example.com", "password-one")

	rec, resp = env.do(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Username string `json:"username"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	require.Equal(t, "flow", me.Username)
	require.True(t, me.IsActive)
}

func TestVerifyRejectsWrongAndForeignCodes(t *testing.T) {
	env := newTestEnv(t)

	aliceID := env.register(t, "alice", "alice@example.com", "password-one")
	bobID := env.register(t, "bob", "bob@example.com", "password-two")

	rec, resp := env.do(t, http.MethodPost, "/api/auth/verify/"+aliceID, "", gin.H{"code": "000000"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VERIFICATION_INVALID", resp.Error.Code)

	// Bob's code does not activate Alice.
	bobCode := env.latestCode(t, bobID)
	rec, resp = env.do(t, http.MethodPost, "/api/auth/verify/"+aliceID, "", gin.H{"code": bobCode})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VERIFICATION_INVALID", resp.Error.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/auth/verify/missing-id", "", gin.H{"code": "000000"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestResendDoesNotRevealAccounts(t *testing.T) {
	env := newTestEnv(t)

	userID := env.register(t, "resend", "resend@example.com", "password-one")

	rec, resp := env.do(t, http.MethodPost, "/api/auth/verify/"+userID+"/resend", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	// Unknown ids get the same success-shaped answer.
	rec, resp = env.do(t, http.MethodPost, "/api/auth/verify/missing-id/resend", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	// Both codes stay live after the resend.
	var count int64
	require.NoError(t, env.db.Model(&models.EmailVerification{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         "short",
		"email":            "short@example.com",
		"password":         "password-one",
		"password_confirm": "password-two",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, resp.Success)

	env.register(t, "unique", "unique@example.com", "password-one")
	rec, resp = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         "another",
		"email":            "Unique@Example.com",
		"password":         "password-one",
		"password_confirm": "password-one",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "EMAIL_TAKEN", resp.Error.Code)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	userID := env.register(t, "karin", "karin@example.com", "password-one")
	code := env.latestCode(t, userID)
	rec, _ := env.do(t, http.MethodPost, "/api/auth/verify/"+userID, "", gin.H{"code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "karin@example.com",
		"password":   "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "ghost@example.com",
		"password":   "password-one",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)

	userID := env.register(t, "cycle", "cycle@example.com", "password-one")
	code := env.latestCode(t, userID)
	rec, _ := env.do(t, http.MethodPost, "/api/auth/verify/"+userID, "", gin.H{"code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	access, refresh := env.login(t, "cycle", "password-one")

	rec, resp := env.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &rotated))
	require.NotEqual(t, refresh, rotated.RefreshToken)

	rec, _ = env.do(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked session cannot refresh any more.
	rec, resp = env.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": rotated.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	// Neither can its access token, even though the JWT itself is still
	// within its lifetime.
	rec, resp = env.do(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestPostManagementStaffOnly(t *testing.T) {
	env := newTestEnv(t)

	staffID := env.register(t, "editor", "editor@example.com", "password-one")
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", staffID).
		Updates(map[string]any{"is_staff": true, "is_active": true}).Error)

	memberID := env.register(t, "member", "member@example.com", "password-two")
	require.NoError(t, env.users.Activate(context.Background(), memberID))

	staffToken, _ := env.login(t, "editor", "password-one")
	memberToken, _ := env.login(t, "member", "password-two")

	// Anonymous writes are rejected outright.
	rec, _ := env.do(t, http.MethodPost, "/api/posts", "", gin.H{"title": "Nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := env.do(t, http.MethodPost, "/api/posts", memberToken, gin.H{"title": "Nope"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", resp.Error.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/posts", staffToken, gin.H{
		"title":       "Hello feed",
		"description": "First post",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID     string `json:"id"`
		Author string `json:"author"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.Equal(t, "editor", created.Author)

	// The feed itself is public.
	rec, resp = env.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &listed))
	require.Len(t, listed, 1)

	// Members can like and comment.
	likePath := fmt.Sprintf("/api/posts/%s/like", created.ID)
	rec, resp = env.do(t, http.MethodPost, likePath, memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var like struct {
		Liked bool `json:"liked"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &like))
	require.True(t, like.Liked)

	rec, _ = env.do(t, http.MethodPost, likePath, memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%s/comments", created.ID), memberToken, gin.H{"text": "Nice!"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/posts/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
		LikeCount int `json:"like_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	require.Len(t, detail.Comments, 1)
	require.Equal(t, 0, detail.LikeCount)

	// Member cannot delete; staff can.
	rec, _ = env.do(t, http.MethodDelete, "/api/posts/"+created.ID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/posts/"+created.ID, staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/posts/"+created.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	rec, resp = env.do(t, http.MethodGet, "/api/unknown", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}
