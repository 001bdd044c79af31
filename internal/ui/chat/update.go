// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport(false)
		return m, cmd

	case ReplyMsg:
		return m.handleReply(msg), nil

	case StatusMsg:
		m.setStatus(msg.Text, msg.IsError)
		return m, nil

	case ConversationsMsg:
		m.setConversations(msg.Conversations)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global bindings
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		m.session.NewChat()
		m.setStatus("Started a new chat", false)
		m.refreshViewport(true)
		return m, nil
	case key.Matches(msg, m.keys.ClearChat):
		m.session.ClearChat()
		m.setStatus("Chat cleared", false)
		m.refreshViewport(true)
		return m, nil
	case key.Matches(msg, m.keys.CycleModel):
		next := nextModel(m.session.Model())
		m.session.SetModel(next)
		m.setStatus("Model: "+model.DisplayName(next), false)
		return m, nil
	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.setFocus(FocusInput)
		}
		m.layout()
		m.refreshViewport(false)
		return m, nil
	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == FocusInput && m.sidebarVisible() {
			m.refreshConversations()
			m.setFocus(FocusSidebar)
		} else {
			m.setFocus(FocusInput)
		}
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.conversations)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if conv, ok := m.selected(); ok {
			if m.session.SelectConversation(conv.ID) {
				m.setStatus("Opened "+conv.Title, false)
				m.setFocus(FocusInput)
				m.refreshViewport(true)
			} else {
				m.setStatus("Conversation no longer exists", true)
				m.refreshConversations()
			}
		}
	case key.Matches(msg, m.keys.Delete):
		if conv, ok := m.selected(); ok {
			m.session.DeleteConversation(conv.ID)
			m.setStatus("Deleted "+conv.Title, false)
			m.refreshConversations()
			m.refreshViewport(true)
		}
	case key.Matches(msg, m.keys.Back):
		m.setFocus(FocusInput)
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.sending {
		m.setStatus("Waiting for the current response...", true)
		return m, nil
	}

	m.input.Reset()
	m.sending = true
	m.setStatus("", false)
	return m, tea.Batch(SendCmd(m.ctx, m.session, text), m.spinner.Tick)
}

func (m Model) handleReply(msg ReplyMsg) Model {
	m.sending = false
	m.refreshConversations()

	switch {
	case msg.Err == nil:
		if err := m.session.Err(); err != nil {
			m.setStatus(cloud.UserMessage(err), true)
		} else {
			m.setStatus("", false)
		}
	case errors.Is(msg.Err, session.ErrEmptyMessage):
	case errors.Is(msg.Err, session.ErrInFlight), errors.Is(msg.Err, cloud.ErrNotConfigured):
		// Nothing was sent; give the text back.
		m.input.SetValue(msg.Text)
		m.setStatus(cloud.UserMessage(msg.Err), true)
	default:
		m.logger.Warn("send failed", zap.Error(msg.Err))
		m.setStatus(fmt.Sprintf("Send failed: %v", msg.Err), true)
	}

	m.refreshViewport(true)
	return m
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	if f == FocusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m Model) selected() (model.Conversation, bool) {
	if m.cursor < 0 || m.cursor >= len(m.conversations) {
		return model.Conversation{}, false
	}
	return m.conversations[m.cursor], true
}

// nextModel returns the catalog entry after current, wrapping around.
// Ids outside the catalog move to the first entry.
func nextModel(current string) string {
	for i, info := range model.Catalog {
		if info.ID == current {
			return model.Catalog[(i+1)%len(model.Catalog)].ID
		}
	}
	return model.Catalog[0].ID
}
