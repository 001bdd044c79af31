// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
	"github.com/jeranaias/liquidgpt/internal/storage"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

type stubCompleter struct {
	mu         sync.Mutex
	configured bool
	reply      string
	err        error
}

func (s *stubCompleter) IsConfigured() bool { return s.configured }

func (s *stubCompleter) Complete(ctx context.Context, messages []cloud.ChatMessage, modelID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply, s.err
}

func newTestModel(t *testing.T, client *stubCompleter) Model {
	t.Helper()
	store := storage.NewConversationStore(storage.NewMemoryBackend(), nil)
	sess := session.New(store, client, nil)
	m := New(sess, Options{Theme: styles.NewTheme(styles.ModeDark), ShowTimestamps: true})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(m Model, kt tea.KeyType) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: kt})
	return updated.(Model), cmd
}

// findReply runs cmd (and any batched commands) until it yields a ReplyMsg.
func findReply(t *testing.T, cmd tea.Cmd) ReplyMsg {
	t.Helper()
	require.NotNil(t, cmd)
	switch msg := cmd().(type) {
	case ReplyMsg:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if reply, ok := c().(ReplyMsg); ok {
				return reply
			}
		}
	}
	t.Fatal("no ReplyMsg produced")
	return ReplyMsg{}
}

func TestView_WelcomeWhenEmpty(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true})
	view := m.View()
	assert.Contains(t, view, "Welcome to LiquidGPT")
	assert.Contains(t, view, "No conversations yet")
}

func TestSubmit_SendsAndRenders(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true, reply: "Hi there"})
	m = typeText(m, "Hello")

	m, cmd := press(m, tea.KeyEnter)
	assert.True(t, m.sending)
	assert.Empty(t, m.input.Value())

	reply := findReply(t, cmd)
	require.NoError(t, reply.Err)

	updated, _ := m.Update(reply)
	m = updated.(Model)
	assert.False(t, m.sending)

	msgs := m.Session().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi there", msgs[1].Content)

	require.Len(t, m.conversations, 1)
	assert.Equal(t, "Hello", m.conversations[0].Title)
	assert.Contains(t, m.View(), "Hi there")
}

func TestSubmit_BlankIgnored(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true})
	m = typeText(m, "   ")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.sending)
}

func TestSubmit_NotConfiguredRestoresInput(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: false})
	m = typeText(m, "Hello")

	m, cmd := press(m, tea.KeyEnter)
	reply := findReply(t, cmd)
	require.True(t, errors.Is(reply.Err, cloud.ErrNotConfigured))

	updated, _ := m.Update(reply)
	m = updated.(Model)
	assert.Equal(t, "Hello", m.input.Value())
	assert.True(t, m.statusIsError)
	assert.Contains(t, m.status, "OPENROUTER_API_KEY")
	assert.Empty(t, m.Session().Messages())
}

func TestSubmit_APIErrorShownInStatus(t *testing.T) {
	client := &stubCompleter{configured: true, err: &cloud.APIError{Status: 429, Message: "Rate limit exceeded"}}
	m := newTestModel(t, client)
	m = typeText(m, "Hello")

	m, cmd := press(m, tea.KeyEnter)
	updated, _ := m.Update(findReply(t, cmd))
	m = updated.(Model)

	assert.True(t, m.statusIsError)
	assert.Equal(t, "Rate limit exceeded", m.status)
	msgs := m.Session().Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
}

func TestNewChatKey(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true, reply: "ok"})
	m = typeText(m, "Hello")
	m, cmd := press(m, tea.KeyEnter)
	updated, _ := m.Update(findReply(t, cmd))
	m = updated.(Model)
	first := m.Session().BoundID()

	m, _ = press(m, tea.KeyCtrlN)
	assert.Empty(t, m.Session().Messages())
	assert.NotEqual(t, first, m.Session().BoundID())
	assert.Contains(t, m.View(), "Welcome to LiquidGPT")
}

func TestSidebar_OpenAndDelete(t *testing.T) {
	client := &stubCompleter{configured: true, reply: "ok"}
	m := newTestModel(t, client)

	for _, text := range []string{"First question", "Second question"} {
		m, _ = press(m, tea.KeyCtrlN)
		m = typeText(m, text)
		var cmd tea.Cmd
		m, cmd = press(m, tea.KeyEnter)
		updated, _ := m.Update(findReply(t, cmd))
		m = updated.(Model)
	}
	require.Len(t, m.conversations, 2)
	assert.Equal(t, "Second question", m.conversations[0].Title)

	m, _ = press(m, tea.KeyTab)
	require.Equal(t, FocusSidebar, m.focus)

	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, 1, m.cursor)

	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, FocusInput, m.focus)
	msgs := m.Session().Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "First question", msgs[0].Content)

	// Deleting the open conversation starts a new chat.
	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyDown)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = updated.(Model)
	assert.Len(t, m.conversations, 1)
	assert.Empty(t, m.Session().Messages())
}

func TestCycleModel(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true})
	start := m.Session().Model()

	m, _ = press(m, tea.KeyCtrlT)
	assert.NotEqual(t, start, m.Session().Model())
	assert.True(t, strings.HasPrefix(m.status, "Model: "))
}

func TestNextModel(t *testing.T) {
	last := model.Catalog[len(model.Catalog)-1].ID
	assert.Equal(t, model.Catalog[0].ID, nextModel(last))
	assert.Equal(t, model.Catalog[1].ID, nextModel(model.Catalog[0].ID))
	assert.Equal(t, model.Catalog[0].ID, nextModel("custom/model"))
}

func TestToggleSidebar(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true})
	assert.True(t, m.sidebarVisible())

	m, _ = press(m, tea.KeyCtrlB)
	assert.False(t, m.sidebarVisible())
	assert.NotContains(t, m.View(), "Conversations")
}

func TestMarkdownRenderer_FallsBackOnTinyWidth(t *testing.T) {
	r := NewMarkdownRenderer("dark")
	out := r.Render("**bold** text", 5)
	assert.Contains(t, out, "bold")
	assert.Equal(t, 20, r.width)
}

func TestConversationsMsg_ReplacesSidebar(t *testing.T) {
	m := newTestModel(t, &stubCompleter{configured: true})
	m.cursor = 5

	convs := []model.Conversation{
		{ID: "ext-1", Title: "Synced elsewhere", Timestamp: model.Now()},
	}
	updated, cmd := m.Update(ConversationsMsg{Conversations: convs})
	m = updated.(Model)

	assert.Nil(t, cmd)
	require.Len(t, m.conversations, 1)
	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.View(), "Synced elsewhere")
}
