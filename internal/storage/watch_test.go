// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/liquidgpt/internal/model"
)

func TestWatcher_SeesWritesFromAnotherStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	watchedBackend, err := NewFileBackend(dir)
	require.NoError(t, err)
	writerBackend, err := NewFileBackend(dir)
	require.NoError(t, err)

	watched := NewConversationStore(watchedBackend, nil)
	writer := NewConversationStore(writerBackend, nil)

	w, err := NewWatcher(watched, watchedBackend, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := w.Run(ctx)

	_, ok := writer.Save("conv_1", []model.Message{model.NewUserMessage("watched message")})
	require.True(t, ok)

	select {
	case convs := <-updates:
		require.Len(t, convs, 1)
		assert.Equal(t, "watched message", convs[0].Title)
	case <-time.After(5 * time.Second):
		t.Fatal("no update after write")
	}

	cancel()
	for range updates {
	}
}

func TestWatcher_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.db")
	backend, err := OpenSQLiteBackend(path)
	require.NoError(t, err)
	defer backend.Close()

	w, err := NewWatcher(NewConversationStore(backend, nil), backend, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), w.Dir())
	assert.Equal(t, "watch.db", w.prefix)
	assert.Equal(t, DefaultWatchDebounce, w.debounce)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range w.Run(ctx) {
	}
}

func TestWatcher_MemoryNotWatchable(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := NewWatcher(NewConversationStore(backend, nil), backend, 0)
	assert.ErrorIs(t, err, ErrNotWatchable)
}
