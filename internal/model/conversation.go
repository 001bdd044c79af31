// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

const (
	// DefaultTitle is used when a conversation has no user message yet.
	DefaultTitle = "New Chat"

	// titleWords is how many leading words of the first user message form a title.
	titleWords = 6

	// titleMaxLen is the title length in characters before it is cut.
	titleMaxLen = 40
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a persisted, titled sequence of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Title     string    `json:"title"`
	Timestamp string    `json:"timestamp"`
	UpdatedAt string    `json:"updatedAt"`
}

// CreatedTime returns the parsed creation timestamp.
func (c *Conversation) CreatedTime() time.Time {
	return ParseTimestamp(c.Timestamp)
}

// UpdatedTime returns the parsed last-save timestamp.
func (c *Conversation) UpdatedTime() time.Time {
	return ParseTimestamp(c.UpdatedAt)
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// Preview returns the first user message, or "" if there is none.
func (c *Conversation) Preview() string {
	if msg, ok := firstUserMessage(c.Messages); ok {
		return msg.Content
	}
	return ""
}

// DeriveTitle builds a conversation title from the first user message: its
// first six space-separated words, cut to 40 characters with "..." when
// longer. Without a user message the title is DefaultTitle.
func DeriveTitle(messages []Message) string {
	msg, ok := firstUserMessage(messages)
	if !ok {
		return DefaultTitle
	}

	words := strings.Split(msg.Content, " ")
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")

	// Rune-based so multi-byte titles are never split mid-character
	runes := []rune(title)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return title
}

func firstUserMessage(messages []Message) (Message, bool) {
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return msg, true
		}
	}
	return Message{}, false
}
