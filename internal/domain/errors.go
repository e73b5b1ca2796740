package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStateConflict = errors.New("operation conflicts with current state")
	ErrInternalError = errors.New("internal error")
)
