// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the persisted shapes: field names and JSON tags match the
// records written by the browser client, so exported data round-trips.
//
// # Key Types
//
//   - Message: Single immutable message with role, content and timestamp
//   - Conversation: Titled, timestamped, ordered sequence of messages
//   - ModelInfo: Entry in the static model catalog
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
//	msg := model.NewUserMessage("Hello!")
//	title := model.DeriveTitle([]model.Message{msg})
//
//	for _, m := range model.Catalog {
//	    fmt.Println(m.ID, m.DisplayName)
//	}
package model
