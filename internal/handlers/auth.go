package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/services"
	apperrors "github.com/tmusaev/feedline/pkg/errors"
	"github.com/tmusaev/feedline/pkg/metrics"
	"github.com/tmusaev/feedline/pkg/response"
)

// AuthHandler manages the registration, verification, and login flows.
type AuthHandler struct {
	users         *services.UserService
	verifications *services.VerificationService
	gate          *iauth.CredentialGate
	sessions      *iauth.SessionService
}

func NewAuthHandler(
	users *services.UserService,
	verifications *services.VerificationService,
	gate *iauth.CredentialGate,
	sessions *iauth.SessionService,
) *AuthHandler {
	return &AuthHandler{
		users:         users,
		verifications: verifications,
		gate:          gate,
		sessions:      sessions,
	}
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.verifications.IssueCode(ctx, user); err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
		"message": "Account created. Check your email for a verification code.",
	})
}

type verifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/auth/verify/:id
func (h *AuthHandler) Verify(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	var req verifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.verifications.Verify(requestContext(c), userID, req.Code)
	switch {
	case err == nil:
		metrics.VerificationOutcomes.WithLabelValues("success").Inc()
		response.Success(c, http.StatusOK, gin.H{
			"verified": true,
			"message":  "Email verified. You can now log in.",
		})
	case errors.Is(err, services.ErrUserNotFound):
		response.Error(c, apperrors.ErrNotFound)
	case errors.Is(err, services.ErrCodeInvalid), errors.Is(err, services.ErrCodeExpired):
		// Invalid and expired are deliberately indistinguishable to callers.
		metrics.VerificationOutcomes.WithLabelValues("rejected").Inc()
		response.Error(c, apperrors.ErrVerificationInvalid)
	default:
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
	}
}

// POST /api/auth/verify/:id/resend
//
// Always answers success-shaped for unknown accounts so the endpoint cannot
// be used to enumerate registered users.
func (h *AuthHandler) Resend(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	_, err := h.verifications.Resend(requestContext(c), userID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "If the account exists, a new verification code has been sent.",
	})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.gate.Authenticate(requestContext(c), iauth.AuthenticateInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, iauth.ErrAccountInactive):
		metrics.AuthAttempts.WithLabelValues("inactive").Inc()
		response.Error(c, apperrors.ErrAccountInactive)
		return
	case errors.Is(err, iauth.ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	default:
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	pair, _, err := h.sessions.CreateSession(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"is_staff":  user.IsStaff,
			"is_active": user.IsActive,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(req.RefreshToken)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid, ok := currentSessionID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_staff":  user.IsStaff,
		"is_active": user.IsActive,
	})
}
