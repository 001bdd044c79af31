// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/liquidgpt/internal/util"
)

// FileBackend stores each key as <dir>/<key>.json.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{Dir: dir}, nil
}

// Path returns the file that holds key.
func (f *FileBackend) Path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

// WatchPath returns the directory to watch for external changes.
func (f *FileBackend) WatchPath() string {
	return f.Dir
}

// Get implements Backend.
func (f *FileBackend) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set implements Backend. Writes are atomic.
func (f *FileBackend) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(f.Path(key), []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove implements Backend.
func (f *FileBackend) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close implements io.Closer. It is a no-op.
func (f *FileBackend) Close() error {
	return nil
}
