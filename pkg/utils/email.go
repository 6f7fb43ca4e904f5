package utils

import (
	"errors"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that an address is syntactically plausible.
// This only guards against obvious garbage; real ownership is proved by the
// one-time code sent to the address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 100 {
		return errors.New("email is too long")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
