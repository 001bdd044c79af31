// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for liquidgpt.
//
// The view is a thin shell around a session.Session: the transcript, the
// bound conversation and the in-flight flag all live in the session, and the
// view re-reads them on every render. A sidebar lists stored conversations
// with relative dates and lets the user open or delete them.
//
// # Keys
//
//	Enter        send the message
//	Alt+Enter    insert a newline
//	Ctrl+N       new chat
//	Ctrl+L       clear the current chat
//	Ctrl+T       cycle the model
//	Ctrl+B       show or hide the sidebar
//	Tab          move focus between input and sidebar
//	PgUp/PgDn    scroll the transcript
//	F1           toggle help
//	Ctrl+C       quit
package chat
