package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidRun        = errors.New("invalid run")
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("personal best not found")
	ErrInvalidPage       = errors.New("invalid page parameters")
	ErrClosed            = errors.New("store closed")
)
