// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations out as Markdown, HTML or JSON, and
// reads JSON exports back for import.
//
// # Usage
//
//	exp, err := export.ForFormat("html", export.DefaultOptions())
//	path, err := export.ExportToFile(conv, exp, opts)
//
// JSON exports use the stored record layout, so a file written by
// `liquidgpt conversations export --format json` can be passed to
// `liquidgpt conversations import` unchanged.
package export
