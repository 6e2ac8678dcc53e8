package totp_test

import (
	"testing"

	"github.com/campusfix/campusfix/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	t.Parallel()

	codes, err := totp.GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, totp.BackupCodeCount)

	for _, code := range codes {
		assert.Len(t, code, totp.BackupCodeDigits)
		assert.Regexp(t, `^\d{8}$`, code)
	}
}

func TestBackupCodeHashing(t *testing.T) {
	t.Parallel()

	codes, err := totp.GenerateBackupCodes()
	require.NoError(t, err)

	hash := totp.HashBackupCode(codes[0])
	assert.NotEqual(t, codes[0], hash)
	assert.Len(t, hash, 64) // hex-encoded SHA-256

	assert.True(t, totp.VerifyBackupCode(codes[0], hash))
	assert.False(t, totp.VerifyBackupCode("00000000", hash))
	assert.False(t, totp.VerifyBackupCode(codes[0], totp.HashBackupCode("99999999")))
}
