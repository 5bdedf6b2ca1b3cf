// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/go-accounts-api/internal/auth"
	"codeberg.org/oliverandrich/go-accounts-api/internal/middleware"
	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/accounts"
	"github.com/labstack/echo/v4"
)

// AccountHandlers contains handlers for registration, login and logout.
type AccountHandlers struct {
	accounts    *accounts.Service
	tokenHeader string
}

// NewAccounts creates a new AccountHandlers instance. The token is returned
// to clients in tokenHeader.
func NewAccounts(svc *accounts.Service, tokenHeader string) *AccountHandlers {
	if tokenHeader == "" {
		tokenHeader = middleware.DefaultTokenHeader
	}
	return &AccountHandlers{
		accounts:    svc,
		tokenHeader: tokenHeader,
	}
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	models.PublicAccount
	Token string `json:"token"`
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the request body for changing the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AccountHandlers) respondSession(c echo.Context, status int, session *accounts.Session) error {
	c.Response().Header().Set(h.tokenHeader, session.Token)
	return c.JSON(status, SessionResponse{
		PublicAccount: h.accounts.Serialize(session.Account),
		Token:         session.Token,
	})
}

// Register creates an account and returns it with its first token.
func (h *AccountHandlers) Register(c echo.Context) error {
	var req accounts.RegisterParams
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	session, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return RespondError(c, err)
	}
	return h.respondSession(c, http.StatusCreated, session)
}

// Login checks the credentials and returns a new token.
func (h *AccountHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	session, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return RespondError(c, err)
	}
	return h.respondSession(c, http.StatusOK, session)
}

// Me returns the authenticated account.
func (h *AccountHandlers) Me(c echo.Context) error {
	account := auth.GetAccount(c.Request().Context())
	if account == nil {
		return RespondError(c, accounts.ErrUnauthorized)
	}
	return c.JSON(http.StatusOK, h.accounts.Serialize(account))
}

// Logout revokes the token the request was authenticated with.
func (h *AccountHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	account := auth.GetAccount(ctx)
	if account == nil {
		return RespondError(c, accounts.ErrUnauthorized)
	}

	if err := h.accounts.Logout(ctx, account, auth.GetToken(ctx)); err != nil {
		return RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every token of the authenticated account.
func (h *AccountHandlers) LogoutAll(c echo.Context) error {
	ctx := c.Request().Context()
	account := auth.GetAccount(ctx)
	if account == nil {
		return RespondError(c, accounts.ErrUnauthorized)
	}

	if _, err := h.accounts.LogoutAll(ctx, account); err != nil {
		return RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword replaces the password of the authenticated account.
func (h *AccountHandlers) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	account := auth.GetAccount(ctx)
	if account == nil {
		return RespondError(c, accounts.ErrUnauthorized)
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid request")
	}

	if err := h.accounts.ChangePassword(ctx, account, req.CurrentPassword, req.NewPassword); err != nil {
		return RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
