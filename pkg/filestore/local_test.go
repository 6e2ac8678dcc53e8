package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/campusfix/campusfix/pkg/filestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := filestore.NewLocalStorage(dir, "/files/")
	require.NoError(t, err)

	f, err := store.Save(context.Background(), "attachments/2026/photo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "attachments/2026/photo.png", f.Path)
	assert.Equal(t, int64(9), f.Size)
	assert.Equal(t, "/files/attachments/2026/photo.png", f.URL)

	data, err := os.ReadFile(filepath.Join(dir, "attachments", "2026", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), "attachments/2026/photo.png"))
	_, err = os.Stat(filepath.Join(dir, "attachments", "2026", "photo.png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing file is a no-op.
	assert.NoError(t, store.Delete(context.Background(), "attachments/2026/photo.png"))
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := filestore.NewLocalStorage(dir, "/files/")
	require.NoError(t, err)

	// Traversal sequences are normalized inside the root, never above it.
	f, err := store.Save(context.Background(), "../../etc/passwd", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", f.Path)
	_, statErr := os.Stat(filepath.Join(dir, "etc", "passwd"))
	assert.NoError(t, statErr)

	_, err = store.Save(context.Background(), "", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, filestore.ErrInvalidPath)
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"../../evil.sh", "evil.sh"},
		{"a/b/c.txt", "c.txt"},
		{"..", "file"},
		{"report..pdf", "report.pdf"},
		{"", "file"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, filestore.SanitizeFilename(tt.in), "input %q", tt.in)
	}
}
