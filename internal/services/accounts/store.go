// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"codeberg.org/oliverandrich/go-accounts-api/internal/repository"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/password"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/token"
	"github.com/google/uuid"
)

// Store persists accounts and answers lookups by credentials or by token.
// Passwords are hashed here, explicitly, whenever the plaintext changes.
type Store struct {
	repo   *repository.Repository
	hasher *password.Hasher
	tokens *token.Issuer
}

// NewStore creates a Store.
func NewStore(repo *repository.Repository, hasher *password.Hasher, tokens *token.Issuer) *Store {
	return &Store{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Tokens returns the issuer used to verify tokens.
func (s *Store) Tokens() *token.Issuer {
	return s.tokens
}

// Create hashes the password and inserts a new account.
// Returns an error matching ErrDuplicateKey if username or email is taken.
func (s *Store) Create(ctx context.Context, username, email, plaintext string) (*models.Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}

	verifier, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, fieldError("password", err.Error())
		}
		return nil, err
	}

	account := &models.Account{
		ID:           id.String(),
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: verifier,
		Tokens:       []models.ActiveToken{},
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// FindByCredentials returns the account whose username and password match.
// Unknown username and wrong password both return ErrNotFound.
func (s *Store) FindByCredentials(ctx context.Context, username, plaintext string) (*models.Account, error) {
	account, err := s.repo.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(plaintext)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		return nil, ErrNotFound
	}

	s.rehashIfNeeded(ctx, account, plaintext)
	return account, nil
}

// rehashIfNeeded upgrades verifiers produced with a different bcrypt cost.
// Failures are logged; the login itself already succeeded.
func (s *Store) rehashIfNeeded(ctx context.Context, account *models.Account, plaintext string) {
	if !s.hasher.NeedsRehash(account.PasswordHash) {
		return
	}
	verifier, err := s.hasher.Hash(plaintext)
	if err != nil {
		slog.WarnContext(ctx, "rehash_failed", "account_id", account.ID, "error", err)
		return
	}
	updatedAt, err := s.repo.UpdatePasswordHash(ctx, account.ID, verifier)
	if err != nil {
		slog.WarnContext(ctx, "rehash_failed", "account_id", account.ID, "error", err)
		return
	}
	account.PasswordHash = verifier
	account.UpdatedAt = updatedAt
	slog.InfoContext(ctx, "rehash_success", "account_id", account.ID, "cost", s.hasher.Cost())
}

// FindByToken verifies the token signature and returns its account, provided
// the exact token is still listed as active with the given purpose.
// Bad signature, unknown account and revoked token all return ErrNotFound.
func (s *Store) FindByToken(ctx context.Context, tok, purpose string) (*models.Account, error) {
	claims, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if claims.Purpose != purpose {
		return nil, ErrNotFound
	}

	account, err := s.repo.GetAccountByToken(ctx, claims.AccountID, tok, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by token: %w", err)
	}
	return account, nil
}

// AppendToken makes a token active for the account. It is durable once this returns.
func (s *Store) AppendToken(ctx context.Context, account *models.Account, tok, purpose string) error {
	active, err := s.repo.AppendToken(ctx, account.ID, tok, purpose)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	account.Tokens = append(account.Tokens, *active)
	account.UpdatedAt = active.CreatedAt
	return nil
}

// RemoveToken revokes one token. Returns ErrNotFound if it was not active.
func (s *Store) RemoveToken(ctx context.Context, account *models.Account, tok, purpose string) error {
	if err := s.repo.RemoveToken(ctx, account.ID, tok, purpose); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove token: %w", err)
	}
	account.Tokens = slices.DeleteFunc(account.Tokens, func(t models.ActiveToken) bool {
		return t.Token == tok && t.Purpose == purpose
	})
	return nil
}

// RemoveAllTokens revokes every active token of the account.
func (s *Store) RemoveAllTokens(ctx context.Context, account *models.Account) (int64, error) {
	removed, err := s.repo.RemoveAllTokens(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove tokens: %w", err)
	}
	account.Tokens = account.Tokens[:0]
	return removed, nil
}

// UpdatePassword replaces the verifier if, and only if, plaintext differs
// from the current password. Reports whether a new verifier was stored.
func (s *Store) UpdatePassword(ctx context.Context, account *models.Account, plaintext string) (bool, error) {
	if s.hasher.Verify(plaintext, account.PasswordHash) {
		return false, nil
	}

	verifier, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return false, fieldError("password", err.Error())
		}
		return false, err
	}

	updatedAt, err := s.repo.UpdatePasswordHash(ctx, account.ID, verifier)
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}
	account.PasswordHash = verifier
	account.UpdatedAt = updatedAt
	return true, nil
}

// Serialize returns the public view of an account: id and username only.
func (s *Store) Serialize(account *models.Account) models.PublicAccount {
	return account.Public()
}
