// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/go-accounts-api/internal/auth"
	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/accounts"
	"github.com/labstack/echo/v4"
)

// DefaultTokenHeader is the header the front-end sends its token in.
const DefaultTokenHeader = "x-auth"

// Authenticator resolves a token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

// TokenFromRequest extracts the token from the given header, falling back to
// "Authorization: Bearer <token>".
func TokenFromRequest(r *http.Request, header string) string {
	if header == "" {
		header = DefaultTokenHeader
	}
	value := strings.TrimSpace(r.Header.Get(header))
	if value == "" {
		value = strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	}
	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return value
}

// Authenticate rejects requests without a valid, active token. On success the
// account and token are stored in the request context (see auth.GetAccount).
func Authenticate(authenticator Authenticator, header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token := TokenFromRequest(req, header)

			account, err := authenticator.Authenticate(req.Context(), token)
			if err != nil {
				if errors.Is(err, accounts.ErrUnauthorized) {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				}
				slog.ErrorContext(req.Context(), "authenticate_error", "error", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}

			c.SetRequest(req.WithContext(auth.WithAccount(req.Context(), account, token)))
			return next(c)
		}
	}
}
