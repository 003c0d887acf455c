package domain

import "errors"

var (
	// ErrDuplicateEmail: registration with an email that already exists (case-insensitive).
	ErrDuplicateEmail = errors.New("email is already in use")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRegistrationFailed is returned when registration could not be stored or hashed.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrStorageCorrupt marks a persisted blob that cannot be decoded. Never surfaced
	// past the repository.
	ErrStorageCorrupt = errors.New("storage value is corrupt")
)
