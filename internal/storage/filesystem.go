package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem stores one file per key under a session directory, so a value
// written by one process can be consumed by the next.
type Filesystem struct {
	basePath string
	logger   *slog.Logger
}

// NewFilesystem creates a filesystem store rooted at basePath.
// The directory is created lazily on the first write.
func NewFilesystem(basePath string, logger *slog.Logger) (*Filesystem, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path required")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	return &Filesystem{
		basePath: absPath,
		logger:   logger.With("component", "session-store"),
	}, nil
}

// DefaultSessionDir returns the per-user temporary directory used by the CLI.
func DefaultSessionDir() string {
	return filepath.Join(os.TempDir(), "doc-translator", "session")
}

func (f *Filesystem) Set(ctx context.Context, key, value string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.basePath, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(value), 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (f *Filesystem) Get(ctx context.Context, key string) (string, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	return string(data), nil
}

func (f *Filesystem) Delete(ctx context.Context, key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (f *Filesystem) Clear(ctx context.Context) error {
	if err := os.RemoveAll(f.basePath); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	f.logger.Debug("session cleared", "path", f.basePath)
	return nil
}

func (f *Filesystem) fullPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.basePath, key), nil
}

// validateKey accepts flat names only: no separators, no traversal.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.HasSuffix(key, ".tmp") {
		return ErrInvalidKey
	}
	return nil
}
