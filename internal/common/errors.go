// Package common defines shared constants and sentinel errors used across
// the havengate client and the owner registry server. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Recoverable outcome kinds. They travel in a Result and are shown to
	// the operator.
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrOwnerExists    = fmt.Errorf("owner already exists: %w", ErrConflict)
	ErrClaimDenied    = fmt.Errorf("owner claim denied: %w", ErrConflict)
	ErrorUnauthorized = errors.New("unauthorized")
	ErrMachineLocked  = fmt.Errorf("owner locked to another machine: %w", ErrorUnauthorized)

	// Flow-aborting kinds.
	ErrRegistry              = errors.New("owner registry error")
	ErrRegistryUnreachable   = fmt.Errorf("owner registry unreachable: %w", ErrRegistry)
	ErrRegistryNotConfigured = fmt.Errorf("owner registry not configured: %w", ErrRegistry)
	ErrInvalidToken          = errors.New("invalid owner token")
	ErrTokenExpired          = fmt.Errorf("owner token expired: %w", ErrInvalidToken)

	// ErrStorage marks database failures the process cannot recover from.
	ErrStorage = errors.New("storage failure")
)

// Failure pairs an error kind with the message shown to the operator.
// errors.Is(f, kind) holds for the kind it was built with.
type Failure struct {
	Kind    error
	Message string
}

// Fail builds a *Failure.
func Fail(kind error, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

// Message extracts the operator-facing text from err. Errors that are not
// a *Failure are reported with their own text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}
