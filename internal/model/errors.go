package model

import "errors"

// Error kinds returned by services. Transports match them with errors.Is.
var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a duplicate registration.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredential covers every authentication failure without naming the
	// check that failed.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrStore marks a failed or malformed store round-trip.
	ErrStore = errors.New("store unavailable")
	// ErrConfiguration marks an unusable startup configuration.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrPasswordMismatch is returned by password hashers on a failed comparison.
	ErrPasswordMismatch = errors.New("password mismatch")
)
