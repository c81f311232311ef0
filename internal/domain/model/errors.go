package model

import "errors"

// Error kinds. Adapters and services wrap these so callers can classify a
// failure with errors.Is regardless of where it originated.
var (
	// ErrValidation indicates caller input that cannot be acted on.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a missing connection, mapping, link or remote issue.
	ErrNotFound = errors.New("not found")

	// ErrSecurity indicates secure storage is unavailable or a plaintext
	// credential was read without the override.
	ErrSecurity = errors.New("security error")

	// ErrRemote indicates a transport or API failure from the remote tracker.
	ErrRemote = errors.New("remote error")
)
