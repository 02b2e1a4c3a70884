package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAuthenticated is an ErrUnauthorized raised when there is no principal at all
	ErrNotAuthenticated     = fmt.Errorf("%w: not authenticated", ErrUnauthorized)
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailAlreadyInUse    = errors.New("email address already in use")
	ErrSignupFailed         = errors.New("signup failed")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
)
