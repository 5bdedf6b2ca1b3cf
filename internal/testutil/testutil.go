// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/go-accounts-api/internal/database"
	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"codeberg.org/oliverandrich/go-accounts-api/internal/repository"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/accounts"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/password"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/token"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TokenSecret is the signing secret used by NewTestService.
const TokenSecret = "test-secret-do-not-use-in-production"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount inserts an account directly through the repository.
// The password hash is a real bcrypt hash of "password" at minimum cost.
func NewTestAccount(t *testing.T, repo *repository.Repository, username string) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// NewTestIssuer creates a token issuer signed with TokenSecret.
func NewTestIssuer(t *testing.T, opts ...token.Option) *token.Issuer {
	t.Helper()
	issuer, err := token.NewIssuer([]byte(TokenSecret), opts...)
	require.NoError(t, err)
	return issuer
}

// NewTestService wires a full account service over an in-memory database.
// bcrypt runs at minimum cost to keep tests fast.
func NewTestService(t *testing.T) (*accounts.Service, *repository.Repository) {
	t.Helper()
	_, repo := NewTestDB(t)
	store := accounts.NewStore(repo, password.NewHasher(bcrypt.MinCost), NewTestIssuer(t))
	return accounts.NewService(store), repo
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
