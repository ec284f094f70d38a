// Package common defines the error taxonomy shared by every layer of the
// identity service. Callers match errors with errors.Is against either a
// specific sentinel or one of the five kinds.
package common

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by services wraps exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("unauthorized")
	ErrStorage    = errors.New("storage error")
)

var (
	// Repository-level errors.
	ErrorNotFound = fmt.Errorf("%w: record", ErrNotFound)

	// User directory errors.
	ErrUsernameTaken     = fmt.Errorf("%w: username is already taken", ErrConflict)
	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrAmbiguousSelector = fmt.Errorf("%w: selector matches more than one user", ErrValidation)
	ErrEmptySelector     = fmt.Errorf("%w: specify either id or username", ErrValidation)

	// Session errors.
	ErrSessionNotFound  = fmt.Errorf("%w: no such refresh token for user", ErrNotFound)
	ErrInvalidPassword  = fmt.Errorf("%w: incorrect password", ErrAuth)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrAuth)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrAuth)
	ErrUnknownTokenKind = fmt.Errorf("%w: unknown token key", ErrValidation)

	// Tenant errors.
	ErrDomainNotFound      = fmt.Errorf("%w: domain", ErrNotFound)
	ErrMissingDomainSecret = fmt.Errorf("%w: missing domain credentials", ErrAuth)
	ErrInvalidDomainSecret = fmt.Errorf("%w: invalid domain secret", ErrAuth)
)

// Error codes rendered to clients.
const (
	CodeValidation = "val_err"
	CodeConflict   = "conflict_err"
	CodeNotFound   = "not_found_err"
	CodeAuth       = "auth_err"
	CodeStorage    = "storage_err"
	CodeInternal   = "internal_err"
)

// Validation marks err as a validation failure keeping its message.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Storage marks err as coming from the persistence boundary. Errors that
// already carry a kind are returned unchanged.
func Storage(err error) error {
	if err == nil || Code(err) != CodeInternal {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Code maps err to its client-facing code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAuth):
		return CodeAuth
	case errors.Is(err, ErrStorage):
		return CodeStorage
	default:
		return CodeInternal
	}
}

// Message returns a client-safe message for err. Storage and internal
// failures are not described to the client.
func Message(err error) string {
	switch Code(err) {
	case CodeStorage:
		return "storage unavailable"
	case CodeInternal:
		return "internal error"
	default:
		return err.Error()
	}
}
