package totp

import "errors"

var (
	ErrSecretGeneration     = errors.New("failed to generate TOTP secret")
	ErrInvalidSecret        = errors.New("invalid TOTP secret")
	ErrMissingIssuer        = errors.New("missing issuer")
	ErrMissingAccountName   = errors.New("missing account name")
	ErrBackupCodeGeneration = errors.New("failed to generate backup code")
)
