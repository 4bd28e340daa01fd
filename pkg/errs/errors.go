// Package errs defines the sentinel errors shared by the server handlers,
// the storage layer, and the sync client. Handlers map them onto HTTP status
// codes; the client maps status codes back onto them.
package errs

import "errors"

var (
	// storage errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// auth errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionExpired     = errors.New("session expired")

	// request errors
	ErrValidation = errors.New("validation error")

	// client-side errors
	ErrNetwork = errors.New("network error")

	ErrInternal = errors.New("internal error")
)
