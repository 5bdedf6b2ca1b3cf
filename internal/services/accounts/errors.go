// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package accounts

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"codeberg.org/oliverandrich/go-accounts-api/internal/repository"
)

var (
	// ErrNotFound is the store's generic lookup miss.
	ErrNotFound = repository.ErrNotFound
	// ErrDuplicateKey is returned when username or email is already taken.
	ErrDuplicateKey = repository.ErrDuplicateKey
	// ErrAuthenticationFailed is returned for any bad username/password pair.
	// Unknown user and wrong password are indistinguishable.
	ErrAuthenticationFailed = errors.New("invalid username or password")
	// ErrUnauthorized is returned for missing, malformed, revoked or foreign tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports malformed or missing input fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// newValidationError converts ozzo validation errors. Other errors pass through.
func newValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for name, fieldErr := range errs {
		if fieldErr != nil {
			fields[name] = fieldErr.Error()
		}
	}
	return &ValidationError{Fields: fields}
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
