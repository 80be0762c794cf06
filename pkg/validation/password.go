package validation

import (
	"strings"
	"unicode"

	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// WeakPasswordMessage is shown when a password fails the policy.
const WeakPasswordMessage = "Password must be at least 8 chars, include uppercase, lowercase, number, and special char."

const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// IsValidPassword reports whether password has at least 8 characters and
// contains an uppercase letter, a lowercase letter, a digit and one of
// !@#$%^&*(),.?":{}|<>
func IsValidPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// ValidatePassword returns a validation error for weak passwords.
func ValidatePassword(password string) error {
	if !IsValidPassword(password) {
		return apperrors.NewValidationError(WeakPasswordMessage, nil)
	}
	return nil
}

// ValidateEmail performs a shallow shape check on an email address.
func ValidateEmail(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return apperrors.NewValidationError("Invalid email address", nil)
	}
	return nil
}
