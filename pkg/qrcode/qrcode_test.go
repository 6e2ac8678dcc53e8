package qrcode_test

import (
	"strings"
	"testing"

	"github.com/campusfix/campusfix/pkg/qrcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("valid content", func(t *testing.T) {
		t.Parallel()
		png, err := qrcode.Generate("otpauth://totp/CampusFix:a@b.c?secret=ABC", 128)
		require.NoError(t, err)
		assert.True(t, len(png) > 0)
		// PNG magic bytes
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		_, err := qrcode.Generate("   ", 128)
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	})

	t.Run("non-positive size falls back to default", func(t *testing.T) {
		t.Parallel()
		png, err := qrcode.Generate("hello", 0)
		require.NoError(t, err)
		assert.True(t, len(png) > 0)
	})
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := qrcode.DataURI("hello", 64)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	_, err = qrcode.DataURI("", 64)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}
