package types

import "errors"

// Error kinds shared by every package. Callers test them with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrIO                    = errors.New("io failure")
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrConflict              = errors.New("conflict")
	ErrNoProject             = errors.New("no project loaded")
)
