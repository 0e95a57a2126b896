package apperror

import "errors"

var (
	ErrNotFound          = errors.New("node not found")
	ErrInvalidState      = errors.New("invalid node state")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrNoPendingTitle    = errors.New("no confirmed title to teach")
	ErrConflict          = errors.New("node was modified concurrently")
	ErrSessionNotFound   = errors.New("session not found")
	ErrValidation        = errors.New("validation failed")
)
