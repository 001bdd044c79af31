// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for liquidgpt.
//
// Conversations live under a handful of string keys in a key/value
// Backend, mirroring the browser localStorage layout the client was
// first written against. Three backends are provided:
//
//   - MemoryBackend: in-process map, used by tests
//   - FileBackend: one JSON file per key, written atomically
//   - SQLiteBackend: a single kv table in a SQLite database
//
// # Usage
//
//	backend, err := storage.OpenBackend("file", dataDir)
//	store := storage.NewConversationStore(backend, logger)
//	conv, ok := store.Save(store.GenerateID(), messages)
//
// Store operations never return errors to the chat flow. Write failures
// are logged and reported through the boolean results; unreadable or
// corrupt data reads as an empty collection.
package storage
