package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured byte limit.
	ErrTooLarge = errors.New("storage: object exceeds size limit")
	// ErrInvalidKey is returned for keys escaping the storage root.
	ErrInvalidKey = errors.New("storage: invalid object key")
	// ErrNotExist is returned when the object is absent.
	ErrNotExist = errors.New("storage: object does not exist")
)

// LocalStorage persists media objects on disk under a base directory.
type LocalStorage struct {
	baseDir  string
	maxBytes int64
}

// NewLocalStorage ensures the base directory exists and returns a handle. maxBytes <= 0 disables the limit.
func NewLocalStorage(baseDir string, maxBytes int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: maxBytes}, nil
}

// Put streams r into the object identified by key and returns the number of bytes written.
// A partially written object is removed when the limit is exceeded.
func (s *LocalStorage) Put(key string, r io.Reader) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare media directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create media file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("write media file: %w", copyErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		_ = os.Remove(path)
		return 0, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("close media file: %w", closeErr)
	}
	return written, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}
