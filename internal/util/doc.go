// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by liquidgpt packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// Display Helpers:
//   - TruncateWidth: Column-aware truncation with ellipsis
//   - PadRight: Column-aware padding for table output
//   - RelativeDate: "Today" / "Yesterday" / "N days ago" labels
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a title into a 30 column table cell
//	cell := util.PadRight(util.TruncateWidth(title, 30), 30)
package util
