package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	// BackupCodeCount is the number of backup codes issued at setup time.
	BackupCodeCount = 10
	// BackupCodeDigits is the length of each backup code.
	BackupCodeDigits = 8
)

var backupCodeMax = big.NewInt(1_0000_0000) // 10^BackupCodeDigits

// GenerateBackupCodes creates a fresh set of single-use recovery codes.
// Each code is 8 decimal digits drawn independently from a cryptographic
// source; uniqueness is probabilistic, not enforced.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, BackupCodeCount)
	for i := range codes {
		n, err := rand.Int(rand.Reader, backupCodeMax)
		if err != nil {
			return nil, errors.Join(ErrBackupCodeGeneration, err)
		}
		codes[i] = fmt.Sprintf("%0*d", BackupCodeDigits, n)
	}
	return codes, nil
}

// HashBackupCode creates a SHA-256 digest for durable storage of a backup code.
// Plain codes are shown to the user once and never persisted.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode compares a submitted code against a stored hash in
// constant time to avoid leaking match position through timing.
func VerifyBackupCode(code, hashedCode string) bool {
	computed := HashBackupCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashedCode)) == 1
}
