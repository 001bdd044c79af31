// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// Focus identifies which pane receives key presses.
type Focus int

const (
	FocusInput   Focus = iota // Typing a message
	FocusSidebar              // Browsing conversations
)

const (
	sidebarWidth = 32
	inputHeight  = 3
)

// Options configures the chat view.
type Options struct {
	Theme          *styles.Theme
	RenderMarkdown bool
	ShowTimestamps bool
	Logger         *zap.Logger

	// Context bounds every completion started from the view.
	Context context.Context
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session *session.Session
	theme   *styles.Theme
	logger  *zap.Logger
	ctx     context.Context
	keys    KeyMap

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	markdown *MarkdownRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// Sidebar
	focus         Focus
	showSidebar   bool
	conversations []model.Conversation
	cursor        int

	// Status
	sending        bool
	showHelp       bool
	status         string
	statusIsError  bool
	renderMarkdown bool
	showTimestamps bool

	now func() time.Time
}

// New creates a chat view over sess.
func New(sess *session.Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		session:        sess,
		theme:          theme,
		logger:         logger,
		ctx:            ctx,
		keys:           keys,
		viewport:       viewport.New(80, 20),
		input:          ta,
		spinner:        sp,
		markdown:       NewMarkdownRenderer(theme.GlamourStyle()),
		showSidebar:    true,
		renderMarkdown: opts.RenderMarkdown,
		showTimestamps: opts.ShowTimestamps,
		now:            time.Now,
	}
	m.refreshConversations()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Session returns the session behind the view.
func (m Model) Session() *session.Session {
	return m.session
}

// refreshConversations reloads the sidebar list and keeps the cursor in range.
func (m *Model) refreshConversations() {
	m.setConversations(m.session.Store().GetAll())
}

func (m *Model) setConversations(convs []model.Conversation) {
	m.conversations = convs
	if m.cursor >= len(m.conversations) {
		m.cursor = len(m.conversations) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// layout sizes the components for the current window.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)

	mainWidth := m.mainWidth()
	m.input.SetWidth(mainWidth - 4)

	// header + status bar + input box with border
	vpHeight := m.height - 2 - (inputHeight + 2)
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

func (m Model) mainWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= sidebarWidth + 2
	}
	if w < 20 {
		w = 20
	}
	return w
}

// refreshViewport re-renders the transcript. It follows the bottom when
// the view was already there.
func (m *Model) refreshViewport(forceBottom bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if forceBottom || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(text string, isError bool) {
	m.status = text
	m.statusIsError = isError
}
