// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL PROBING
// =============================================================================

// interactive reports whether the full-screen interface can run: both
// stdin and stdout must be a terminal.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && IsStdoutTTY()
}

// stdinPiped reports whether ask should read its question from stdin.
func stdinPiped() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal. Replies are rendered
// as markdown only then; redirected output stays raw.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// LAYOUT WIDTHS
// =============================================================================

const (
	fallbackWidth = 80
	minWidth      = 40

	// replyGutter leaves room for glamour's margins.
	replyGutter = 4

	// listColumns is taken by the marker, index, date and count columns of
	// the conversation list.
	listColumns   = 30
	minTitleWidth = 20

	maxSeparatorWidth = 70
)

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return max(width, minWidth)
}

// replyWidth is the wrap width for rendered assistant replies.
func replyWidth() int {
	return terminalWidth() - replyGutter
}

// titleWidth is what is left for conversation titles in a list row.
func titleWidth() int {
	return max(terminalWidth()-listColumns, minTitleWidth)
}

func separatorWidth() int {
	return min(replyWidth(), maxSeparatorWidth)
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled reports whether styled and highlighted output is used.
// NO_COLOR wins over FORCE_COLOR; a dumb terminal gets plain text.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsEnabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsEnabled = true
		case os.Getenv("TERM") == "dumb":
			colorsEnabled = false
		default:
			colorsEnabled = IsStdoutTTY()
		}
	})
	return colorsEnabled
}

// ForceColorsEnabled overrides color detection. Tests only.
func ForceColorsEnabled(enabled bool) {
	colorsEnabledOnce = sync.Once{}
	colorsEnabledOnce.Do(func() {
		colorsEnabled = enabled
	})
}

// resetColorDetection makes the next ColorsEnabled call read the
// environment again.
func resetColorDetection() {
	colorsEnabledOnce = sync.Once{}
}

func colorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
