package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a user or entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentity is returned when a username or email is already taken.
	ErrDuplicateIdentity = errors.New("username or email already exists")
	// ErrDuplicateUsername and ErrDuplicateEmail name the field that collided.
	// Both match ErrDuplicateIdentity.
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrDuplicateIdentity)
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicateIdentity)
	// ErrAuthenticationFailed is returned for any failed credential check.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// isUniqueViolation reports whether err is a unique constraint violation.
// Drivers without error translation are matched on their message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
