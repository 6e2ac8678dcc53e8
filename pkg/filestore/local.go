package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores files on the local filesystem. All paths are confined
// to baseDir to prevent traversal outside the storage root.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage creates a filesystem-backed storage rooted at baseDir.
// baseURL is the public prefix files are served from (e.g. "/files/").
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(absBaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &LocalStorage{baseDir: absBaseDir, baseURL: baseURL}, nil
}

func (s *LocalStorage) Save(ctx context.Context, path, contentType string, r io.Reader) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSave, err)
	}

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSave, err)
	}

	size, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Clean up the partial file so a failed upload leaves nothing behind.
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("%w: %v", ErrFailedToSave, err)
	}

	return &File{
		Path:        cleaned,
		Size:        size,
		ContentType: contentType,
		URL:         s.URL(cleaned),
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	cleaned, err := cleanPath(path)
	if err != nil {
		return err
	}
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))

	if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFailedToDelete, err)
	}
	return nil
}

func (s *LocalStorage) URL(path string) string {
	cleaned, err := cleanPath(path)
	if err != nil {
		return ""
	}
	return s.baseURL + cleaned
}

var _ Storage = (*LocalStorage)(nil)
