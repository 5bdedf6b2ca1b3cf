// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password turns plaintext passwords into bcrypt verifiers and checks them.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// ErrTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrTooLong = errors.New("password is too long")

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher creates a Hasher with the given bcrypt cost.
// Costs outside bcrypt's supported range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// Verified against for unknown users so lookups take the same time
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns a self-describing bcrypt verifier ($2a$<cost>$<salt><digest>)
// with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches verifier. Malformed verifiers never match.
func (h *Hasher) Verify(plaintext, verifier string) bool {
	return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(plaintext)) == nil
}

// VerifyDummy burns the same CPU as Verify against a real hash. Always false.
func (h *Hasher) VerifyDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// NeedsRehash reports whether verifier was produced with a different cost.
func (h *Hasher) NeedsRehash(verifier string) bool {
	cost, err := bcrypt.Cost([]byte(verifier))
	if err != nil {
		return true
	}
	return cost != h.cost
}
