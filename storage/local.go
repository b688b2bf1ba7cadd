package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore writes blobs under a root directory and serves them from a base
// URL path. It stands in for a hosted object store behind the same interface.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a disk-backed store. baseURL prefixes returned blob
// URLs, e.g. "/files".
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalStore{root: root, baseURL: baseURL}, nil
}

// Put writes the blob under key, creating parent directories as needed.
func (s *LocalStore) Put(ctx context.Context, key string, contents io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	if _, err := io.Copy(f, io.LimitReader(contents, MaxEvidenceSize+1)); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return s.baseURL + "/" + key, nil
}

// Remove deletes the blob under key; a missing blob is not an error.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}
