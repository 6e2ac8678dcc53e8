package totp_test

import (
	"testing"
	"time"

	"github.com/campusfix/campusfix/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecret()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Regexp(t, "^[A-Z2-7]+$", secret)

	// 160 bits of entropy encode to 32 Base32 characters without padding.
	assert.Len(t, secret, 32)

	other, err := totp.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestKeyURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		issuer  string
		account string
		secret  string
		want    string
		wantErr error
	}{
		{
			name:    "basic URI",
			issuer:  "CampusFix",
			account: "student@campus.edu",
			secret:  "ABCDEFGHIJKLMNOP",
			want:    "otpauth://totp/CampusFix:student@campus.edu?algorithm=SHA1&digits=6&issuer=CampusFix&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "issuer with spaces",
			issuer:  "Campus Fix",
			account: "a+b@campus.edu",
			secret:  "ABCDEFGHIJKLMNOP",
			want:    "otpauth://totp/Campus%20Fix:a+b@campus.edu?algorithm=SHA1&digits=6&issuer=Campus+Fix&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "missing issuer",
			account: "student@campus.edu",
			secret:  "ABCDEFGHIJKLMNOP",
			wantErr: totp.ErrMissingIssuer,
		},
		{
			name:    "missing account",
			issuer:  "CampusFix",
			secret:  "ABCDEFGHIJKLMNOP",
			wantErr: totp.ErrMissingAccountName,
		},
		{
			name:    "invalid secret",
			issuer:  "CampusFix",
			account: "student@campus.edu",
			secret:  "not-base32!",
			wantErr: totp.ErrInvalidSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.KeyURI(tt.issuer, tt.account, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAt(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecret()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	code, err := totp.GenerateCodeAt(secret, now)
	require.NoError(t, err)
	require.Len(t, code, 6)

	t.Run("current window matches", func(t *testing.T) {
		t.Parallel()
		ok, err := totp.ValidateAt(secret, code, now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("adjacent windows match", func(t *testing.T) {
		t.Parallel()
		ok, err := totp.ValidateAt(secret, code, now.Add(30*time.Second))
		require.NoError(t, err)
		assert.True(t, ok, "code from previous step must be accepted")

		ok, err = totp.ValidateAt(secret, code, now.Add(-30*time.Second))
		require.NoError(t, err)
		assert.True(t, ok, "code from next step must be accepted")
	})

	t.Run("two steps away rejected", func(t *testing.T) {
		t.Parallel()
		ok, err := totp.ValidateAt(secret, code, now.Add(2*totp.Period*time.Second))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = totp.ValidateAt(secret, code, now.Add(-2*totp.Period*time.Second))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed codes are non-matching", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"", "12345", "1234567", "abcdef", "12 456"} {
			ok, err := totp.ValidateAt(secret, bad, now)
			require.NoError(t, err)
			assert.False(t, ok, "code %q must not match", bad)
		}
	})

	t.Run("invalid secret", func(t *testing.T) {
		t.Parallel()
		_, err := totp.ValidateAt("not-base32!", "123456", now)
		assert.ErrorIs(t, err, totp.ErrInvalidSecret)
	})
}

func TestGenerateCodeAt_Deterministic(t *testing.T) {
	t.Parallel()

	// RFC 6238 test vector: secret "12345678901234567890" (ASCII), T=59s -> 94287082
	// for 8 digits; the 6-digit truncation is 287082.
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	code, err := totp.GenerateCodeAt(secret, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestValidate_WithinSameStep(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecret()
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret)
	require.NoError(t, err)

	ok, err := totp.Validate(secret, code)
	require.NoError(t, err)
	assert.True(t, ok)
}
