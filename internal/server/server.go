// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/go-accounts-api/internal/config"
	"codeberg.org/oliverandrich/go-accounts-api/internal/database"
	"codeberg.org/oliverandrich/go-accounts-api/internal/handlers"
	"codeberg.org/oliverandrich/go-accounts-api/internal/metrics"
	"codeberg.org/oliverandrich/go-accounts-api/internal/middleware"
	"codeberg.org/oliverandrich/go-accounts-api/internal/repository"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/accounts"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/password"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"token_header", cfg.Auth.TokenHeader,
		"token_ttl", cfg.Auth.TokenTTL,
	)

	// Database, migrations are applied on open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	e, err := New(cfg, db)
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the Echo instance with all services, middleware and routes.
func New(cfg *config.Config, db *sqlx.DB) (*echo.Echo, error) {
	var m *metrics.Metrics
	var opts []accounts.Option
	if cfg.Server.Metrics {
		m = metrics.New()
		opts = append(opts, accounts.WithRecorder(m))
	}

	svc, err := newAccountService(cfg, db, opts...)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	setupMiddleware(e, cfg)
	if m != nil {
		e.Use(m.Middleware())
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	setupRoutes(e, svc, cfg.Auth.TokenHeader)

	return e, nil
}

func newAccountService(cfg *config.Config, db *sqlx.DB, svcOpts ...accounts.Option) (*accounts.Service, error) {
	var opts []token.Option
	if cfg.Auth.TokenTTL > 0 {
		opts = append(opts, token.WithTTL(cfg.Auth.TokenTTL))
	}
	if cfg.Auth.Issuer != "" {
		opts = append(opts, token.WithIssuer(cfg.Auth.Issuer))
	}

	issuer, err := token.NewIssuer([]byte(cfg.Auth.TokenSecret), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	store := accounts.NewStore(repository.New(db), password.NewHasher(cfg.Auth.BcryptCost), issuer)
	return accounts.NewService(store, svcOpts...), nil
}

func setupRoutes(e *echo.Echo, svc *accounts.Service, tokenHeader string) {
	h := handlers.New()
	a := handlers.NewAccounts(svc, tokenHeader)

	e.GET("/health", h.Health)

	users := e.Group("/api/users")
	users.POST("", a.Register)
	users.POST("/login", a.Login)

	me := users.Group("/me", middleware.Authenticate(svc, tokenHeader))
	me.GET("", a.Me)
	me.DELETE("/token", a.Logout)
	me.DELETE("/tokens", a.LogoutAll)
	me.PUT("/password", a.ChangePassword)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Channel for server errors
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}
