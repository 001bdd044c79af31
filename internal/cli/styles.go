// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(16)

	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	separatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)
)

// renderSeparator renders a horizontal rule sized to the terminal.
func renderSeparator() string {
	return separatorStyle.Render(strings.Repeat("-", separatorWidth()))
}

// renderLabel renders a fixed-width field label.
func renderLabel(label string) string {
	return labelStyle.Render(label)
}
