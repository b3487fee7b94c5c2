// Package fs implements concat.FileSystem against the real filesystem.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"concatfile-go/internal/concat"
)

// OSFileSystem is the operating-system implementation of
// concat.FileSystem.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OSFileSystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

var _ concat.FileSystem = (*OSFileSystem)(nil)

func (*OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (*OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Resolve follows symlinks to the canonical path. A trailing component
// that does not exist yet is kept, with its parent still resolved, so
// destinations that are about to be created behave like existing ones.
func (*OSFileSystem) Resolve(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	dir, base := filepath.Split(filepath.Clean(path))
	if dir == "" {
		return filepath.Clean(path), nil
	}
	resolvedDir, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Clean(path), nil
		}
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return filepath.Join(resolvedDir, base), nil
}

// WriteFileAtomic writes data to a temp file in path's directory and
// renames it into place, so readers never observe a partial file.
func (*OSFileSystem) WriteFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".concatfile-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		tmpFile.Close()
		return fmt.Errorf("setting mode on temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	success = true
	return nil
}

func (*OSFileSystem) MkdirAll(path string, mode fs.FileMode) error {
	return os.MkdirAll(path, mode)
}
