// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/go-accounts-api/internal/config"
	"codeberg.org/oliverandrich/go-accounts-api/internal/handlers"
	appmw "codeberg.org/oliverandrich/go-accounts-api/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(corsMiddleware(cfg))
	}
}

// corsMiddleware allows browser clients to send and read the token header.
func corsMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	header := cfg.Auth.TokenHeader
	if header == "" {
		header = appmw.DefaultTokenHeader
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, header},
		ExposeHeaders: []string{header},
	})
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			} else {
				slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}

			return nil
		},
	})
}

// jsonErrorHandler renders errors that escape the handlers, like unknown
// routes or oversized bodies, in the same shape as handler errors.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = handlers.RespondError(c, err)
		return
	}

	message := http.StatusText(he.Code)
	if msg, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
		message = msg
	}
	if he.Code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request_failed", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, handlers.ErrorResponse{Error: message})
}
