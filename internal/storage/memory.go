// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"sync"
)

// MemoryBackend keeps values in a map. It is safe for concurrent use.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string

	// Quota caps the total size in bytes of all stored values (0 = unlimited).
	// Writes past the quota fail with ErrQuotaExceeded, like a full
	// browser localStorage.
	Quota int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Quota > 0 {
		size := len(value)
		for k, v := range m.values {
			if k != key {
				size += len(v)
			}
		}
		if size > m.Quota {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = value
	return nil
}

// Remove implements Backend.
func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Close implements io.Closer. It is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}
