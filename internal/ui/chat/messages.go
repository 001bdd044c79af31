// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
)

// ReplyMsg reports that a send finished. Err is only set for failures
// that left the transcript untouched (blank input, in flight, not
// configured); remote errors are already in the transcript.
type ReplyMsg struct {
	Text string
	Err  error
}

// StatusMsg sets the status line.
type StatusMsg struct {
	Text    string
	IsError bool
}

// ConversationsMsg replaces the sidebar list, typically after another
// process changed storage.
type ConversationsMsg struct {
	Conversations []model.Conversation
}

// SendCmd runs a send on the session.
func SendCmd(ctx context.Context, sess *session.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return ReplyMsg{Text: text, Err: sess.SendMessage(ctx, text)}
	}
}
