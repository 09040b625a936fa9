package domain

import "errors"

// Shared error kinds. Callers wrap them with fmt.Errorf("...: %w", ...)
// and transports map them with errors.Is; nothing below the kind ever
// leaks to a client.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)
