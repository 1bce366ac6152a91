// Package common defines shared constants and sentinel errors used across
// the sync engine and its collaborators. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Validation errors surfaced to the user before any network request.
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrInvalidAccountName = errors.New("invalid account name")

	// Local-state errors.
	ErrGameDirInvalid = errors.New("game directory is not valid")
	ErrBackupMissing  = errors.New("backup archive not found")

	// Engine errors.
	ErrInvalidTransition = errors.New("invalid state transition")
)
