package model

import "errors"

// Sentinel errors for domain value validation.
var (
	ErrInvalidKind   = errors.New("invalid ranking kind")
	ErrInvalidStatus = errors.New("invalid run status")
)
