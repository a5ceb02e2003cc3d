package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tmusaev/feedline/pkg/response"
)

// Health returns a readiness payload that includes database connectivity.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(requestContext(c)) != nil {
				status = "degraded"
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": status})
	}
}
