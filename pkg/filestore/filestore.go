package filestore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidConfig  = errors.New("filestore: invalid config")
	ErrInvalidPath    = errors.New("filestore: invalid path")
	ErrFailedToSave   = errors.New("filestore: failed to save file")
	ErrFailedToDelete = errors.New("filestore: failed to delete file")
	ErrNotFound       = errors.New("filestore: file not found")
)

// File holds metadata about a stored object.
type File struct {
	Path        string
	Size        int64
	ContentType string
	URL         string
}

// Storage stores binary blobs (avatars, issue attachments, resolution
// evidence) and serves them back by public URL.
type Storage interface {
	// Save writes the blob under the given path and returns its metadata.
	Save(ctx context.Context, path, contentType string, r io.Reader) (*File, error)
	// Delete removes a single object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for a stored path.
	URL(path string) string
}

var multiDotRegex = regexp.MustCompile(`\.{2,}`)

// SanitizeFilename strips directory components and path traversal sequences
// from a user-provided filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = multiDotRegex.ReplaceAllString(name, ".")
	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		name = "file"
	}
	return name
}

// cleanPath normalizes a storage path and rejects traversal outside the root.
func cleanPath(path string) (string, error) {
	path = strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+path)), "/")
	if path == "" || path == "." || strings.HasPrefix(path, "..") {
		return "", ErrInvalidPath
	}
	return path, nil
}
