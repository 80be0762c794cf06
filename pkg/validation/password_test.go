package validation

import (
	"testing"

	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
)

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Qwerty@123", true},
		{"Abcdef1!", true},
		{"short", false},
		{"NoNumber!", false},
		{"nouppercase1!", false},
		{"NOLOWERCASE1!", false},
		{"NoSpecial123", false},
		{"Ab1!", false},
		{"Ünïcödé1!", false},
		{"Passw0rd<", true},
		{"Passw0rd-", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := IsValidPassword(tt.password); got != tt.want {
				t.Errorf("IsValidPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	err := ValidatePassword("weak")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.(*apperrors.AppError).Message != WeakPasswordMessage {
		t.Errorf("unexpected message %q", err.(*apperrors.AppError).Message)
	}
	if err := ValidatePassword("Qwerty@123"); err != nil {
		t.Errorf("expected strong password to pass, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{"peter@dailybugle.com", "a@b"} {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v", email, err)
		}
	}
	for _, email := range []string{"", "peter", "@bugle.com", "peter@", "pe ter@bugle.com"} {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) should fail", email)
		}
	}
}
