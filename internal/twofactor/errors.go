package twofactor

import "errors"

var (
	ErrSetupNotInitiated = errors.New("two-factor setup not initiated")
	ErrAlreadyEnabled    = errors.New("two-factor authentication already enabled")
	ErrNotEnabled        = errors.New("two-factor authentication not enabled")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrMarkerStore       = errors.New("session marker store failure")
)
