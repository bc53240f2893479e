package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"retailhub/backend/internal/app"
	"retailhub/backend/internal/config"
	"retailhub/backend/internal/httpapi"
	"retailhub/backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Must(logger.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.Build(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), deps.Repo)
	api := httpapi.New(deps.Service, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimitPerMin,
		LoginRateLimit: cfg.LoginRateLimit,
		Production:     cfg.Production,
		Metrics:        deps.Metrics,
		Logger:         log,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("retailhub backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validateSecretStrength(cfg.AuthSecret); err != nil {
		return fmt.Errorf("AUTH_SECRET is too weak: %w", err)
	}
	if cfg.Production && strings.TrimSpace(cfg.AllowedOrigin) == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name an origin in production")
	}
	return nil
}

// validateSecretStrength rejects secrets built from a handful of repeated
// characters or from placeholder words.
func validateSecretStrength(secret string) error {
	distinct := make(map[rune]struct{})
	for _, r := range secret {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 8 {
		return fmt.Errorf("needs at least 8 distinct characters")
	}

	lower := strings.ToLower(secret)
	for _, placeholder := range []string{"changeme", "secret", "password", "retailhub"} {
		if strings.Contains(lower, placeholder) {
			return fmt.Errorf("contains placeholder %q", placeholder)
		}
	}
	return nil
}
