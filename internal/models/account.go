// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// PurposeAuth is the purpose tag of tokens issued at register and login.
const PurposeAuth = "auth"

// Account is a registered user.
type Account struct {
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
	ID           string        `db:"id" json:"id"`
	Username     string        `db:"username" json:"username"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Tokens       []ActiveToken `db:"-" json:"-"`
}

// ActiveToken is a token the store currently accepts for its account.
type ActiveToken struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	AccountID string    `db:"account_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	Purpose   string    `db:"purpose" json:"purpose"`
	ID        int64     `db:"id" json:"-"`
}

// PublicAccount is the only representation of an account sent to clients.
type PublicAccount struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Public returns the client-facing view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Username: a.Username}
}

// HasToken reports whether the token/purpose pair is in the active list.
func (a *Account) HasToken(token, purpose string) bool {
	for _, t := range a.Tokens {
		if t.Token == token && t.Purpose == purpose {
			return true
		}
	}
	return false
}
