// Package signup validates signup input and reports field-level errors.
package signup

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ErrInvalidInput is the kind returned when any field fails validation.
// Per-field detail travels in FieldErrors.
var ErrInvalidInput = errors.New("invalid input")

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Request is the signup input.
type Request struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FieldErrors maps a field name to its validation messages, mirroring the
// shape the dashboard renders next to each input.
type FieldErrors map[string][]string

// Validate checks the request and returns the per-field problems.
// An empty result means the request is acceptable.
func Validate(req Request) FieldErrors {
	fe := FieldErrors{}

	if !emailRx.MatchString(strings.TrimSpace(req.Email)) {
		fe["email"] = append(fe["email"], "Invalid email address.")
	}

	if len(req.Password) < MinPasswordLength {
		fe["password"] = append(fe["password"], "Password must be at least 8 characters long.")
	}
	if !passwordComplexOK(req.Password) {
		fe["password"] = append(fe["password"],
			"Password must contain at least one uppercase letter, one lowercase letter, and one special character.")
	}

	if len(fe) == 0 {
		return nil
	}
	return fe
}

// passwordComplexOK requires a lowercase letter, an uppercase letter, and a
// non-alphanumeric character. Digits alone do not satisfy the special-class
// requirement.
func passwordComplexOK(password string) bool {
	var lower, upper, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			special = true
		}
	}
	return lower && upper && special
}
