// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package accounts implements registration, login, token authentication and logout.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/go-accounts-api/internal/models"
)

// Session is the result of a successful register or login.
type Session struct {
	Account *models.Account
	Token   string
}

// Results passed to Recorder.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder receives the outcome of every account operation.
type Recorder interface {
	RecordAuthEvent(event, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Service orchestrates the store and the token issuer. It holds no
// per-request state.
type Service struct {
	store    *Store
	recorder Recorder
}

// NewService creates a Service.
func NewService(store *Store, opts ...Option) *Service {
	s := &Service{store: store, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record classifies err for the recorder. Errors the caller caused are
// rejections, everything else is an internal error.
func (s *Service) record(event string, err error) {
	var vErr *ValidationError
	switch {
	case err == nil:
		s.recorder.RecordAuthEvent(event, ResultSuccess)
	case errors.As(err, &vErr),
		errors.Is(err, ErrDuplicateKey),
		errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound):
		s.recorder.RecordAuthEvent(event, ResultRejected)
	default:
		s.recorder.RecordAuthEvent(event, ResultError)
	}
}

// Store returns the underlying account store.
func (s *Service) Store() *Store {
	return s.store
}

// Register validates the input, creates the account and logs it in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	session, err := s.register(ctx, params)
	s.record("register", err)
	return session, err
}

func (s *Service) register(ctx context.Context, params RegisterParams) (*Session, error) {
	params = params.normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	account, err := s.store.Create(ctx, params.Username, params.Email, params.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			slog.WarnContext(ctx, "register_failed", "username", params.Username, "reason", "duplicate")
		}
		return nil, err
	}

	tok, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "register_success", "account_id", account.ID, "username", account.Username)
	return &Session{Account: account, Token: tok}, nil
}

// Login checks the credentials and issues a new token.
// Every credential failure returns ErrAuthenticationFailed.
func (s *Service) Login(ctx context.Context, username, plaintext string) (*Session, error) {
	session, err := s.login(ctx, username, plaintext)
	s.record("login", err)
	return session, err
}

func (s *Service) login(ctx context.Context, username, plaintext string) (*Session, error) {
	account, err := s.store.FindByCredentials(ctx, username, plaintext)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "login_failed", "username", username, "reason", "invalid_credentials")
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}

	tok, err := s.issue(ctx, account)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "login_success", "account_id", account.ID, "tokens", len(account.Tokens))
	return &Session{Account: account, Token: tok}, nil
}

// issue mints an auth token and persists it before returning it.
func (s *Service) issue(ctx context.Context, account *models.Account) (string, error) {
	tok, err := s.store.Tokens().Issue(account.ID, models.PurposeAuth)
	if err != nil {
		return "", err
	}
	if err := s.store.AppendToken(ctx, account, tok, models.PurposeAuth); err != nil {
		return "", err
	}
	return tok, nil
}

// Authenticate resolves a presented token to its account.
// Missing, malformed, foreign and revoked tokens return ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, tok string) (*models.Account, error) {
	account, err := s.authenticate(ctx, tok)
	s.record("authenticate", err)
	return account, err
}

func (s *Service) authenticate(ctx context.Context, tok string) (*models.Account, error) {
	if tok == "" {
		return nil, ErrUnauthorized
	}
	account, err := s.store.FindByToken(ctx, tok, models.PurposeAuth)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.DebugContext(ctx, "authenticate_failed", "error", err)
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return account, nil
}

// Logout revokes the given token of the account.
func (s *Service) Logout(ctx context.Context, account *models.Account, tok string) error {
	err := s.logout(ctx, account, tok)
	s.record("logout", err)
	return err
}

func (s *Service) logout(ctx context.Context, account *models.Account, tok string) error {
	if err := s.store.RemoveToken(ctx, account, tok, models.PurposeAuth); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	slog.InfoContext(ctx, "logout_success", "account_id", account.ID)
	return nil
}

// LogoutAll revokes every token of the account and returns how many were removed.
func (s *Service) LogoutAll(ctx context.Context, account *models.Account) (int64, error) {
	removed, err := s.logoutAll(ctx, account)
	s.record("logout_all", err)
	return removed, err
}

func (s *Service) logoutAll(ctx context.Context, account *models.Account) (int64, error) {
	removed, err := s.store.RemoveAllTokens(ctx, account)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "logout_all_success", "account_id", account.ID, "removed", removed)
	return removed, nil
}

// ChangePassword replaces the password after checking the current one.
// Active tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, account *models.Account, current, next string) error {
	err := s.changePassword(ctx, account, current, next)
	s.record("change_password", err)
	return err
}

func (s *Service) changePassword(ctx context.Context, account *models.Account, current, next string) error {
	if err := validatePassword("new_password", next); err != nil {
		return err
	}
	if !s.store.hasher.Verify(current, account.PasswordHash) {
		slog.WarnContext(ctx, "change_password_failed", "account_id", account.ID)
		return ErrAuthenticationFailed
	}

	changed, err := s.store.UpdatePassword(ctx, account, next)
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	slog.InfoContext(ctx, "change_password_success", "account_id", account.ID, "changed", changed)
	return nil
}

// Serialize returns the public view of an account.
func (s *Service) Serialize(account *models.Account) models.PublicAccount {
	return s.store.Serialize(account)
}
