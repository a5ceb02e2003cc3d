package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/handlers"
	"github.com/tmusaev/feedline/internal/middleware"
	"github.com/tmusaev/feedline/internal/services"
)

// Deps bundles the long-lived services the router needs.
type Deps struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Sessions      *iauth.SessionService
	Gate          *iauth.CredentialGate
	Users         *services.UserService
	Verifications *services.VerificationService
	Posts         *services.PostService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil || deps.Sessions == nil || deps.Gate == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}
	if deps.Users == nil || deps.Verifications == nil || deps.Posts == nil {
		return nil, fmt.Errorf("domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	// Public endpoints
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Verifications, deps.Gate, deps.Sessions)
	postHandler := handlers.NewPostHandler(deps.Posts)

	api := r.Group("/api")
	requireAuth := middleware.Auth(deps.JWT, deps.Sessions)

	registerAuthRoutes(r, api, authHandler, requireAuth)
	registerPostRoutes(api, postHandler, requireAuth)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
