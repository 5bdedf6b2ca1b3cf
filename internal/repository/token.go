// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"github.com/vinovest/sqlx"
)

// AppendToken adds a token to the account's active list and bumps the
// account's updated_at. The write is committed before it returns.
func (r *Repository) AppendToken(ctx context.Context, accountID, token, purpose string) (*models.ActiveToken, error) {
	active := &models.ActiveToken{
		AccountID: accountID,
		Token:     token,
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := touch(ctx, tx, accountID, active.CreatedAt); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO account_tokens (account_id, token, purpose, created_at) VALUES (?, ?, ?, ?)`,
			accountID, token, purpose, active.CreatedAt)
		if err != nil {
			return wrapError(err)
		}
		active.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}

// GetTokensByAccountID returns the active tokens of an account in insertion order.
func (r *Repository) GetTokensByAccountID(ctx context.Context, accountID string) ([]models.ActiveToken, error) {
	tokens := []models.ActiveToken{}
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT id, account_id, token, purpose, created_at FROM account_tokens WHERE account_id = ? ORDER BY id`,
		accountID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// RemoveToken deletes one token/purpose pair. Returns ErrNotFound if it was not active.
func (r *Repository) RemoveToken(ctx context.Context, accountID, token, purpose string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM account_tokens WHERE account_id = ? AND token = ? AND purpose = ?`,
			accountID, token, purpose)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return touch(ctx, tx, accountID, time.Now().UTC())
	})
}

// RemoveAllTokens deletes every active token of an account and returns how many were removed.
func (r *Repository) RemoveAllTokens(ctx context.Context, accountID string) (int64, error) {
	var removed int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM account_tokens WHERE account_id = ?`, accountID)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return touch(ctx, tx, accountID, time.Now().UTC())
	})
	return removed, err
}
