// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync/atomic"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// TimestampFormat is the ISO-8601 layout used for persisted timestamps.
// It matches JavaScript's Date.toISOString output.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Message is a single chat message. Messages are never mutated after
// creation; a conversation only grows by appending.
type Message struct {
	ID        int64  `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	IsError   bool   `json:"isError,omitempty"`
}

// lastMessageID backs nextMessageID.
var lastMessageID atomic.Int64

// nextMessageID returns a creation timestamp in nanoseconds, bumped by one
// when the clock has not advanced since the previous call.
func nextMessageID() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastMessageID.Load()
		if now <= last {
			now = last + 1
		}
		if lastMessageID.CompareAndSwap(last, now) {
			return now
		}
	}
}

// Now returns the current time formatted as a persisted timestamp.
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats t in UTC using TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a persisted timestamp. Malformed values yield the
// zero time.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        nextMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: Now(),
	}
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return newMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant reply.
func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewErrorMessage creates an assistant message recording a failed request.
// The failure stays in the transcript like any other message.
func NewErrorMessage(description string) Message {
	msg := newMessage(RoleAssistant, "Error: "+description)
	msg.IsError = true
	return msg
}

// Time returns the parsed message timestamp.
func (m Message) Time() time.Time {
	return ParseTimestamp(m.Timestamp)
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}
