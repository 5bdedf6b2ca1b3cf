// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()
	i, err := NewIssuer(testSecret, opts...)
	require.NoError(t, err)
	return i
}

func TestNewIssuer_MissingSecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewIssuer([]byte{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewIssuer_CopiesSecret(t *testing.T) {
	secret := []byte("mutable-secret")
	i, err := NewIssuer(secret)
	require.NoError(t, err)

	tok, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	secret[0] = 'X'

	_, err = i.Verify(tok)
	assert.NoError(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	claims, err := i.Verify(tok)

	require.NoError(t, err)
	assert.Equal(t, "account-1", claims.AccountID)
	assert.Equal(t, "auth", claims.Purpose)
	assert.NotEmpty(t, claims.ID)
	assert.NotNil(t, claims.IssuedAt)
	assert.Nil(t, claims.ExpiresAt)
}

func TestIssue_DistinctTokens(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	i := newTestIssuer(t, withClock(func() time.Time { return fixed }))

	first, err := i.Issue("account-1", "auth")
	require.NoError(t, err)
	second, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestIssue_PayloadFieldNames(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	mapClaims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, mapClaims)
	require.NoError(t, err)

	assert.Equal(t, "account-1", mapClaims["_id"])
	assert.Equal(t, "auth", mapClaims["access"])
	assert.NotContains(t, mapClaims, "exp")
}

func TestVerify_Tampered(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	for pos := range len(tok) {
		if tok[pos] == '.' {
			continue
		}
		replacement := byte('A')
		if tok[pos] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:pos] + string(replacement) + tok[pos+1:]

		_, err := i.Verify(tampered)
		require.ErrorIs(t, err, ErrInvalidToken, "tampered at position %d", pos)
	}
}

func TestVerify_Reversed(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("account-1", "auth")
	require.NoError(t, err)

	runes := []rune(tok)
	for a, b := 0, len(runes)-1; a < b; a, b = a+1, b-1 {
		runes[a], runes[b] = runes[b], runes[a]
	}

	_, err = i.Verify(string(runes))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	i := newTestIssuer(t)

	for _, tok := range []string{"", "not-a-token", "a.b.c", strings.Repeat(".", 3)} {
		_, err := i.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := NewIssuer([]byte("other-secret"))
	require.NoError(t, err)

	tok, err := other.Issue("account-1", "auth")
	require.NoError(t, err)

	_, err = newTestIssuer(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: "account-1", Purpose: "auth"})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestIssuer(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherHMAC(t *testing.T) {
	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{AccountID: "account-1", Purpose: "auth"})
	tok, err := hs512.SignedString(testSecret)
	require.NoError(t, err)

	_, err = newTestIssuer(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingAccountID(t *testing.T) {
	i := newTestIssuer(t)

	tok, err := i.Issue("", "auth")
	require.NoError(t, err)

	_, err = i.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, WithTTL(time.Hour), withClock(func() time.Time { return start }))

	tok, err := issuer.Issue("account-1", "auth")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, start.Add(time.Hour).Equal(claims.ExpiresAt.Time))

	later := newTestIssuer(t, withClock(func() time.Time { return start.Add(2 * time.Hour) }))
	_, err = later.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_IssuerMismatch(t *testing.T) {
	a := newTestIssuer(t, WithIssuer("service-a"))
	b := newTestIssuer(t, WithIssuer("service-b"))

	tok, err := a.Issue("account-1", "auth")
	require.NoError(t, err)

	_, err = a.Verify(tok)
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
