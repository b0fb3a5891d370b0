package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Error kinds. Handlers map each kind to an HTTP status.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotMember     = errors.New("not a member")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Error is a domain error with a message meant for the API client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// isUniqueViolation reports whether err comes from a unique index.
// gorm translates it when TranslateError is set; the string checks cover
// connections opened without it.
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
