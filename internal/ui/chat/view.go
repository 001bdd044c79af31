// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.theme.InputContainer.Width(m.mainWidth()-2).Render(m.input.View()),
	)
	if m.showHelp {
		main = m.renderHelp()
	}

	body := main
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER / STATUS BAR
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("LiquidGPT")
	modelName := m.theme.HeaderModel.Render(model.DisplayName(m.session.Model()))

	conv := "New Chat"
	if id := m.session.BoundID(); id != "" {
		if c, ok := m.session.Store().Get(id); ok {
			conv = c.Title
		}
	}

	left := title + "  " + util.TruncateWidth(conv, m.width/2)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(modelName) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + modelName)
}

func (m Model) renderStatusBar() string {
	var text string
	switch {
	case m.status != "" && m.statusIsError:
		text = m.theme.ErrorStyle.Render(m.status)
	case m.status != "":
		text = m.theme.InfoStyle.Render(m.status)
	default:
		parts := make([]string, 0, len(m.keys.ShortHelp()))
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		text = strings.Join(parts, "  ")
	}
	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(text, m.width))
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.WelcomeTitle.Render("Keyboard shortcuts"))
	sb.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			sb.WriteString(m.renderBinding(b))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().
		Width(m.mainWidth()).
		Height(m.viewport.Height + inputHeight + 2).
		Render(sb.String())
}

func (m Model) renderBinding(b key.Binding) string {
	h := b.Help()
	return "  " + m.theme.WelcomeKey.Render(util.PadRight(h.Key, 12)) + m.theme.WelcomeInfo.Render(h.Desc)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	height := m.height - 2
	var lines []string
	lines = append(lines, m.theme.SidebarTitle.Render("Conversations"))

	if len(m.conversations) == 0 {
		lines = append(lines, m.theme.SessionMeta.Render("No conversations yet"))
	}

	// Two lines per entry; keep the cursor visible.
	visible := (height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	active := m.session.BoundID()
	now := m.now()
	for i := start; i < len(m.conversations) && i < start+visible; i++ {
		conv := m.conversations[i]
		title := util.PadRight(util.TruncateWidth(conv.Title, sidebarWidth-2), sidebarWidth-2)

		style := m.theme.SessionItem
		switch {
		case m.focus == FocusSidebar && i == m.cursor:
			style = m.theme.SessionItemSelected
		case conv.ID == active:
			style = m.theme.SessionItemActive
		}
		marker := "  "
		if conv.ID == active {
			marker = "> "
		}

		lines = append(lines,
			style.Render(marker+title),
			m.theme.SessionMeta.Render("  "+util.RelativeDate(conv.CreatedTime(), now)),
		)
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(height).
		Render(strings.Join(lines, "\n"))
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m Model) renderMessages() string {
	messages := m.session.Messages()
	if len(messages) == 0 && !m.session.Loading() {
		return m.renderWelcome()
	}

	width := m.viewport.Width - 2
	blocks := make([]string, 0, len(messages)+1)
	for _, msg := range messages {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	if m.sending || m.session.Loading() {
		blocks = append(blocks, m.spinner.View()+" "+m.theme.ThinkingText.Render("Thinking..."))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	var label string
	bubble := m.theme.AssistantBubble
	switch {
	case msg.IsError:
		label = m.theme.ErrorLabel.Render(msg.Role.DisplayName())
		bubble = m.theme.ErrorBubble
	case msg.IsUser():
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		bubble = m.theme.UserBubble
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	}
	if m.showTimestamps {
		if t := msg.Time(); !t.IsZero() {
			label += " " + m.theme.Timestamp.Render(t.Local().Format("15:04"))
		}
	}

	content := msg.Content
	if m.renderMarkdown && msg.IsAssistant() && !msg.IsError {
		content = m.markdown.Render(content, width-2)
	} else {
		content = lipgloss.NewStyle().Width(width - 2).Render(content)
	}

	return label + "\n" + bubble.Render(content)
}

func (m Model) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString(m.theme.WelcomeTitle.Render("Welcome to LiquidGPT"))
	sb.WriteString("\n\n")
	sb.WriteString(m.theme.WelcomeInfo.Render("Start a conversation by typing a message below."))
	sb.WriteString("\n")
	sb.WriteString(m.theme.WelcomeInfo.Render(fmt.Sprintf("Model: %s", model.DisplayName(m.session.Model()))))
	sb.WriteString("\n\n")
	for _, b := range []key.Binding{m.keys.Submit, m.keys.NewChat, m.keys.CycleModel, m.keys.SwitchFocus} {
		sb.WriteString(m.renderBinding(b))
		sb.WriteString("\n")
	}
	return sb.String()
}
