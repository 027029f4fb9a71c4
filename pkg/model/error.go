package model

import "errors"

var (
	// ErrValidation covers sends rejected before any store or registry
	// interaction: empty content or a missing recipient.
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable means the message store could not persist or
	// read. The triggering operation is abandoned end to end.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
