// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state of the active conversation.
//
// A Session owns the visible message list, which conversation (if any)
// that list is bound to, the selected model, and whether a completion is
// in flight. Every change to the message list is flushed to the
// storage.ConversationStore under the bound conversation id.
//
// # Usage
//
//	sess := session.New(store, client, logger)
//	sess.Restore()
//	if err := sess.SendMessage(ctx, "Hello"); err != nil {
//	    // ErrEmptyMessage, ErrInFlight or cloud.ErrNotConfigured
//	}
//
// Remote and transport failures never surface as errors from SendMessage;
// they are appended to the transcript as error messages and reported by Err.
package session
