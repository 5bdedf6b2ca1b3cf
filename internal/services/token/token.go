// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token mints and verifies signed bearer tokens.
//
// The issuer is stateless: a valid signature only proves the payload was
// signed with the configured secret. Whether a token is still active is
// decided by the account store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingSecret is returned by NewIssuer when the signing secret is empty.
	ErrMissingSecret = errors.New("token signing secret must not be empty")
	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned (wrapped with ErrInvalidToken) for expired tokens.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed payload of a token.
type Claims struct {
	AccountID string `json:"_id"`
	Purpose   string `json:"access"`
	jwt.RegisteredClaims
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL adds an expiry claim to issued tokens. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

// WithIssuer sets the "iss" claim and requires it on verification.
func WithIssuer(name string) Option {
	return func(i *Issuer) {
		i.issuer = name
	}
}

// withClock overrides time.Now; used by tests.
func withClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// Issuer signs and verifies HS256 tokens with a fixed secret.
type Issuer struct {
	now    func() time.Time
	issuer string
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. The secret is copied and never changes afterwards.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	i := &Issuer{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token carrying accountID and purpose.
func (i *Issuer) Issue(accountID, purpose string) (string, error) {
	now := i.now()
	claims := Claims{
		AccountID: accountID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and returns the decoded claims.
// Every failure wraps ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithStrictDecoding(),
	}
	if i.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
