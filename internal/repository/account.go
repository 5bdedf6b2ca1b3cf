// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"github.com/vinovest/sqlx"
)

const accountColumns = `id, username, email, password_hash, created_at, updated_at`

// CreateAccount inserts a new account. CreatedAt and UpdatedAt are set here.
// Unique violations on username or email return a *DuplicateKeyError.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.Username, account.Email, account.PasswordHash, now, now)
	if err != nil {
		return wrapError(err)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetAccountByID retrieves an account by ID with its active tokens.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetAccountByUsername retrieves an account by username with its active tokens.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
}

// GetAccountByToken retrieves the account with the given ID only if the
// token/purpose pair is in its active list.
func (r *Repository) GetAccountByToken(ctx context.Context, id, token, purpose string) (*models.Account, error) {
	return r.getAccount(ctx,
		`SELECT a.id, a.username, a.email, a.password_hash, a.created_at, a.updated_at
		 FROM accounts a
		 JOIN account_tokens t ON t.account_id = a.id
		 WHERE a.id = ? AND t.token = ? AND t.purpose = ?`,
		id, token, purpose)
}

func (r *Repository) getAccount(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, args...); err != nil {
		return nil, wrapError(err)
	}
	tokens, err := r.GetTokensByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Tokens = tokens
	return &account, nil
}

// AccountExists checks if an account with the given username exists.
func (r *Repository) AccountExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ?)`, username)
	return exists, err
}

// CountAccounts returns the total number of accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts`)
	return count, err
}

// UpdatePasswordHash stores a new verifier and returns the new UpdatedAt.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) (time.Time, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now, id)
	if err != nil {
		return time.Time{}, wrapError(err)
	}
	if err := requireAffected(res); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// touch bumps updated_at inside a transaction.
func touch(ctx context.Context, tx *sqlx.Tx, id string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
