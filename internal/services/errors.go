package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Wrap them with *Error; compare with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Error is a use-case failure of a given kind with a client-facing message.
type Error struct {
	Kind    error
	Message string
	Details any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func validationError(details any, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...), Details: details}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error for what and
// wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// duplicateOr maps a unique violation to a Validation error on field.
func duplicateOr(err error, field, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationError(map[string]string{field: "already_exists"}, "%s", msg)
	}
	return err
}
