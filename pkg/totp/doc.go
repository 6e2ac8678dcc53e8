// Package totp implements RFC 6238 time-based one-time passwords with the
// fixed profile used by mainstream authenticator apps: HMAC-SHA1, 30-second
// time steps, 6-digit codes.
//
// Validation accepts codes from the previous, current, and next time step to
// tolerate clock drift between the server and the device. That one-step
// tolerance is a deliberate security/usability trade-off; do not widen it.
//
// The package also issues and verifies single-use backup codes for account
// recovery. Codes are handed to the user once as plain 8-digit strings and
// stored only as SHA-256 hashes.
package totp
