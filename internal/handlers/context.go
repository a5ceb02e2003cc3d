package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tmusaev/feedline/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID extracts the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}

// currentSessionID extracts the session id set by the auth middleware.
func currentSessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}
