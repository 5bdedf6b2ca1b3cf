// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package accounts

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	minUsernameLength = 3
	minEmailLength    = 3
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit in bytes
)

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// normalize trims the fields that are stored trimmed.
func (p RegisterParams) normalize() RegisterParams {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	return p
}

// Validate checks the input shape. Expects normalized params.
func (p RegisterParams) Validate() error {
	return newValidationError(validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(minUsernameLength, 0)),
		validation.Field(&p.Email, validation.Required, validation.Length(minEmailLength, 0)),
		validation.Field(&p.Password, passwordRules()...),
	))
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(minPasswordLength, maxPasswordLength),
	}
}

// validatePassword applies the registration password rules to a single value.
func validatePassword(field, value string) error {
	if err := validation.Validate(value, passwordRules()...); err != nil {
		return fieldError(field, err.Error())
	}
	return nil
}
