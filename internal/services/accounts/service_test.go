// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package accounts_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
	"codeberg.org/oliverandrich/go-accounts-api/internal/services/accounts"
	"codeberg.org/oliverandrich/go-accounts-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = accounts.RegisterParams{Username: "alice", Email: "alice@x.com", Password: "secret1"}

func TestRegister(t *testing.T) {
	svc, repo := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)

	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, models.PublicAccount{ID: session.Account.ID, Username: "alice"}, svc.Serialize(session.Account))

	stored, err := repo.GetAccountByID(ctx, session.Account.ID)
	require.NoError(t, err)
	require.Len(t, stored.Tokens, 1)
	assert.Equal(t, session.Token, stored.Tokens[0].Token)
	assert.Equal(t, models.PurposeAuth, stored.Tokens[0].Purpose)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := testutil.NewTestService(t)

	tests := []struct {
		name   string
		params accounts.RegisterParams
		field  string
	}{
		{"missing username", accounts.RegisterParams{Email: "alice@x.com", Password: "secret1"}, "username"},
		{"short username", accounts.RegisterParams{Username: "al", Email: "alice@x.com", Password: "secret1"}, "username"},
		{"whitespace username", accounts.RegisterParams{Username: "  al  ", Email: "alice@x.com", Password: "secret1"}, "username"},
		{"missing email", accounts.RegisterParams{Username: "alice", Password: "secret1"}, "email"},
		{"short email", accounts.RegisterParams{Username: "alice", Email: "a@", Password: "secret1"}, "email"},
		{"missing password", accounts.RegisterParams{Username: "alice", Email: "alice@x.com"}, "password"},
		{"short password", accounts.RegisterParams{Username: "alice", Email: "alice@x.com", Password: "12345"}, "password"},
		{"long password", accounts.RegisterParams{Username: "alice", Email: "alice@x.com", Password: strings.Repeat("a", 73)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.params)

			var vErr *accounts.ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, err = svc.Register(ctx, accounts.RegisterParams{Username: "alice", Email: "other@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, accounts.ErrDuplicateKey)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, err = svc.Register(ctx, accounts.RegisterParams{Username: "bob", Email: "alice@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, accounts.ErrDuplicateKey)
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	svc, repo := testutil.NewTestService(t)
	ctx := context.Background()

	const attempts = 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Go(func() {
			_, errs[i] = svc.Register(ctx, alice)
		})
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, accounts.ErrDuplicateKey):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, dup)

	count, err := repo.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLogin(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	session, err := svc.Login(ctx, "alice", "secret1")

	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, session.Account.ID)
	assert.NotEqual(t, registered.Token, session.Token)
}

func TestLogin_SameErrorForWrongPasswordAndUnknownUser(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice", "wrongpw")
	_, unknownUser := svc.Login(ctx, "nobody", "secret1")

	assert.ErrorIs(t, wrongPassword, accounts.ErrAuthenticationFailed)
	assert.ErrorIs(t, unknownUser, accounts.ErrAuthenticationFailed)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	account, err := svc.Authenticate(ctx, session.Token)

	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, account.ID)
}

func TestAuthenticate_Invalid(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"truncated": session.Token[:len(session.Token)-3],
		"appended":  session.Token + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tok)
			assert.ErrorIs(t, err, accounts.ErrUnauthorized)
		})
	}
}

func TestLogout(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	account, err := svc.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, account, registered.Token))

	_, err = svc.Authenticate(ctx, registered.Token)
	assert.ErrorIs(t, err, accounts.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, second.Token)
	assert.NoError(t, err)

	err = svc.Logout(ctx, account, registered.Token)
	assert.ErrorIs(t, err, accounts.ErrUnauthorized)
}

func TestLogoutAll(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	removed, err := svc.LogoutAll(ctx, second.Account)

	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	for _, tok := range []string{registered.Token, second.Token} {
		_, err = svc.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, accounts.ErrUnauthorized)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, session.Account, "secret1", "secret2"))

	_, err = svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, accounts.ErrAuthenticationFailed)
	_, err = svc.Login(ctx, "alice", "secret2")
	assert.NoError(t, err)

	// Existing tokens survive a password change
	_, err = svc.Authenticate(ctx, session.Token)
	assert.NoError(t, err)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, session.Account, "wrongpw", "secret2")

	assert.ErrorIs(t, err, accounts.ErrAuthenticationFailed)
}

func TestChangePassword_InvalidNew(t *testing.T) {
	svc, _ := testutil.NewTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, session.Account, "secret1", "123")

	var vErr *accounts.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "new_password")
}

// TestAliceScenario walks through register, authenticate, tamper, bad login and second login.
func TestAliceScenario(t *testing.T) {
	svc, repo := testutil.NewTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", svc.Serialize(registered.Account).Username)
	first := registered.Token

	account, err := svc.Authenticate(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)

	runes := []rune(first)
	for a, b := 0, len(runes)-1; a < b; a, b = a+1, b-1 {
		runes[a], runes[b] = runes[b], runes[a]
	}
	_, err = svc.Authenticate(ctx, string(runes))
	assert.ErrorIs(t, err, accounts.ErrUnauthorized)

	_, err = svc.Login(ctx, "alice", "wrongpw")
	assert.ErrorIs(t, err, accounts.ErrAuthenticationFailed)

	second, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second.Token)

	stored, err := repo.GetAccountByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasToken(first, models.PurposeAuth))
	assert.True(t, stored.HasToken(second.Token, models.PurposeAuth))
}

func TestValidationError_Error(t *testing.T) {
	err := &accounts.ValidationError{Fields: map[string]string{
		"username": "cannot be blank",
		"email":    "cannot be blank",
	}}

	assert.Equal(t, "validation failed: email: cannot be blank; username: cannot be blank", err.Error())
	assert.Equal(t, "validation failed", (&accounts.ValidationError{}).Error())
}

type recordedEvent struct {
	event, result string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) RecordAuthEvent(event, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, result})
}

func TestService_RecordsOutcomes(t *testing.T) {
	base, _ := testutil.NewTestService(t)
	rec := &fakeRecorder{}
	svc := accounts.NewService(base.Store(), accounts.WithRecorder(rec))
	ctx := context.Background()

	session, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	_, _ = svc.Register(ctx, alice)
	_, _ = svc.Login(ctx, "alice", "wrongpw")
	_, _ = svc.Authenticate(ctx, session.Token)
	require.NoError(t, svc.Logout(ctx, session.Account, session.Token))

	assert.Equal(t, []recordedEvent{
		{"register", accounts.ResultSuccess},
		{"register", accounts.ResultRejected},
		{"login", accounts.ResultRejected},
		{"authenticate", accounts.ResultSuccess},
		{"logout", accounts.ResultSuccess},
	}, rec.events)
}

func TestWithRecorder_NilKeepsDefault(t *testing.T) {
	base, _ := testutil.NewTestService(t)
	svc := accounts.NewService(base.Store(), accounts.WithRecorder(nil))

	_, err := svc.Register(context.Background(), alice)

	assert.NoError(t, err)
}
