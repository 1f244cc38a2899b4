// Package common defines shared constants and sentinel errors used across
// client and server layers of linkdeck. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal          = errors.New("internal error")
	ErrorUnauthorized      = errors.New("unauthorized")
	ErrorValidation        = errors.New("validation error")
	ErrorAccountInactive   = errors.New("account inactive")
	ErrorServerUnavailable = errors.New("server unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Client-side session errors.
	ErrNotAuthenticated = errors.New("not authenticated")
)
