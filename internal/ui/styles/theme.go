// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER / STATUS
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	HeaderModel  lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	ErrorLabel      lipgloss.Style
	Timestamp       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style

	// ==========================================================================
	// INPUT / LOADING
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Spinner        lipgloss.Style
	ThinkingText   lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarTitle        lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionItemActive   lipgloss.Style
	SessionMeta         lipgloss.Style

	// ==========================================================================
	// WELCOME
	// ==========================================================================

	WelcomeTitle lipgloss.Style
	WelcomeInfo  lipgloss.Style
	WelcomeKey   lipgloss.Style

	// ==========================================================================
	// STATUS INDICATORS
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// ResolveDark reports whether a theme mode selects dark rendering.
// Unknown modes behave like auto.
func ResolveDark(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDark:
		return true
	case ModeLight:
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// NewTheme creates a new theme for the given mode.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := ResolveDark(mode)
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style name matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderModel = lipgloss.NewStyle().Foreground(Cyan)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.ErrorLabel = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.UserBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = t.UserBubble.BorderForeground(AssistantBubbleBorder)
	t.ErrorBubble = t.UserBubble.
		BorderForeground(ErrorBubbleBorder).
		Foreground(Rose)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Spinner = lipgloss.NewStyle().Foreground(Amber)
	t.ThinkingText = lipgloss.NewStyle().Italic(true).Foreground(TextSecondary)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.SessionItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)
	t.SessionItemActive = lipgloss.NewStyle().Foreground(Cyan)
	t.SessionMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.WelcomeTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.WelcomeInfo = lipgloss.NewStyle().Foreground(TextSecondary)
	t.WelcomeKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	t.SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	t.ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.WarningStyle = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Cyan)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
