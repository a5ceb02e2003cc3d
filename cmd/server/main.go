package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tmusaev/feedline/internal/api"
	"github.com/tmusaev/feedline/internal/app"
	"github.com/tmusaev/feedline/internal/app/maintenance"
	iauth "github.com/tmusaev/feedline/internal/auth"
	"github.com/tmusaev/feedline/internal/database"
	"github.com/tmusaev/feedline/internal/services"
	"github.com/tmusaev/feedline/pkg/logger"
	"github.com/tmusaev/feedline/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("feedline-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")
	for key := range generated {
		log.Info("generated runtime secret", zap.String("key", key))
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	userSvc, err := services.NewUserService(db)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	verificationSvc, err := services.NewVerificationService(db, userSvc, mailer, cfg.Auth.VerificationOptions()...)
	if err != nil {
		return fmt.Errorf("initialise verification service: %w", err)
	}

	postSvc, err := services.NewPostService(db)
	if err != nil {
		return fmt.Errorf("initialise post service: %w", err)
	}

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(db, jwtService, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise session service: %w", err)
	}

	gate, err := iauth.NewCredentialGate(db, userSvc, iauth.CredentialsConfig{})
	if err != nil {
		return fmt.Errorf("initialise credential gate: %w", err)
	}

	cleaner := maintenance.NewCleaner(sessionSvc)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Deps{
		DB:            db,
		JWT:           jwtService,
		Sessions:      sessionSvc,
		Gate:          gate,
		Users:         userSvc,
		Verifications: verificationSvc,
		Posts:         postSvc,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:     strings.TrimSpace(cfg.Database.Path),
		DSN:      strings.TrimSpace(cfg.Database.DSN),
		Host:     strings.TrimSpace(cfg.Database.Host),
		Port:     cfg.Database.Port,
		User:     strings.TrimSpace(cfg.Database.Username),
		Password: cfg.Database.Password,
		Name:     strings.TrimSpace(cfg.Database.Name),
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
