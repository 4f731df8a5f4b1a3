package attachstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStore stores attachments as files on the local filesystem.
type LocalFileStore struct {
	basePath string
}

// NewLocalFileStore creates a new LocalFileStore at the given base path.
// It creates the directory if it does not exist.
func NewLocalFileStore(basePath string) (*LocalFileStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("attachstore: create base directory: %w", err)
	}
	return &LocalFileStore{basePath: basePath}, nil
}

// path maps a key to a file path, flattening separators so keys like
// "msg-id/file.pdf" stay inside the base directory.
func (s *LocalFileStore) path(key string) string {
	return filepath.Join(s.basePath, strings.ReplaceAll(key, "/", "_"))
}

// Put writes attachment data to a file using an atomic write pattern.
func (s *LocalFileStore) Put(_ context.Context, key string, data []byte) error {
	finalPath := s.path(key)

	// Write to a temp file in the same directory, then rename for atomicity.
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("attachstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("attachstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("attachstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("attachstore: rename temp file: %w", err)
	}
	return nil
}

// Get reads attachment data from a file.
// Returns ErrNotFound if the attachment does not exist.
func (s *LocalFileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("attachstore: read file: %w", err)
	}
	return data, nil
}

// Delete removes an attachment file.
// Returns nil if the attachment does not exist (idempotent).
func (s *LocalFileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("attachstore: remove file: %w", err)
	}
	return nil
}
