package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/pkg/errors"
	"github.com/tmusaev/feedline/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Auth enforces JWT authentication using the supplied JWT service. The
// signature check alone cannot see revocation, so the session row is
// consulted on every request; a logged-out session's access token stops
// authenticating immediately rather than at token expiry.
func Auth(jwt *iauth.JWTService, sessions *iauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.SessionID == "" || sessions.ValidateSession(claims.SessionID) != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionIDKey, claims.SessionID)

		c.Next()
	}
}
