// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/go-accounts-api/internal/ctxkeys"
	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
)

// WithAccount returns a context carrying the authenticated account and its token.
func WithAccount(ctx context.Context, account *models.Account, token string) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.Account{}, account)
	return context.WithValue(ctx, ctxkeys.Token{}, token)
}

// GetAccount returns the authenticated account from the context, or nil if not authenticated.
func GetAccount(ctx context.Context) *models.Account {
	if account, ok := ctx.Value(ctxkeys.Account{}).(*models.Account); ok {
		return account
	}
	return nil
}

// GetToken returns the token that authenticated the request, or "".
func GetToken(ctx context.Context) string {
	if token, ok := ctx.Value(ctxkeys.Token{}).(string); ok {
		return token
	}
	return ""
}

// IsAuthenticated returns true if the context has an authenticated account.
func IsAuthenticated(ctx context.Context) bool {
	return GetAccount(ctx) != nil
}
