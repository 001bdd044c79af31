// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a synchronous string key/value store.
type Backend interface {
	// Get returns the value for key. found is false when the key has never
	// been set or was removed; err reports a failed read.
	Get(key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// ClosableBackend is a Backend holding resources that must be released.
type ClosableBackend interface {
	Backend
	io.Closer
}

// Backend kinds accepted by OpenBackend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrQuotaExceeded is returned when a write would exceed the backend quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnknownBackend is returned by OpenBackend for unsupported kinds.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrCorruptData is reported when a stored value cannot be decoded.
	ErrCorruptData = errors.New("corrupt stored data")
)

// validateKey rejects keys that would escape a directory when used as a
// file name.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// =============================================================================
// FACTORY
// =============================================================================

// OpenBackend opens the backend of the given kind rooted at dataDir.
func OpenBackend(kind, dataDir string) (ClosableBackend, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile, "":
		return NewFileBackend(filepath.Join(dataDir, "store"))
	case BackendSQLite:
		return OpenSQLiteBackend(filepath.Join(dataDir, "liquidgpt.db"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
