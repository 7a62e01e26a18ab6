package variant

import "errors"

// Sentinel kinds for variant registry errors.
var (
	ErrUnknownVariant = errors.New("unknown variant")
	ErrInvalidVariant = errors.New("invalid variant")
)
