// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the liquidgpt command line.
//
// Parse splits os.Args into a Command and its Args; main dispatches to the
// matching Handle* function. Every command that touches conversations
// builds an App, which wires configuration, logging, the storage backend,
// the completion client and the active session together.
//
// Commands:
//
//	liquidgpt                    Start the TUI (default)
//	liquidgpt chat               Line-oriented chat with slash commands
//	liquidgpt ask "question"     One-shot question, saved as a conversation
//	liquidgpt conversations      List, show, export, import and watch
//	liquidgpt models             Print the model catalog
//	liquidgpt config             Show or edit configuration
//	liquidgpt serve              Run the local HTTP API
package cli
