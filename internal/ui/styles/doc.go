// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the liquidgpt terminal UI.

All colors use Lip Gloss AdaptiveColor so one palette serves light and dark
terminals. The theme mode ("auto", "dark", "light") comes from the ui.theme
config key; "auto" asks termenv whether the terminal background is dark.

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.UserLabel.Render("You"))

Glamour renderers pick their style from Theme.GlamourStyle so rendered
Markdown matches the rest of the UI.
*/
package styles
