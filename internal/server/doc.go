// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the active chat session over a local JSON API
// for a browser front-end.
//
// # Endpoints
//
//   - GET    /health                         - Health check
//   - GET    /api/models                     - Model catalog and selection
//   - GET    /api/session                    - Session snapshot
//   - POST   /api/session/messages           - Send a message, wait for the reply
//   - POST   /api/session/new                - Start a new conversation
//   - POST   /api/session/clear              - Clear the current conversation
//   - PUT    /api/session/model              - Select a model
//   - GET    /api/conversations              - Stored conversations, newest first
//   - GET    /api/conversations/{id}         - One conversation
//   - POST   /api/conversations/{id}/select  - Make a conversation current
//   - DELETE /api/conversations/{id}         - Delete a conversation
//
// Errors are returned as {"error": "..."}.
//
// # Usage
//
//	srv := server.New(sess, server.WithLogger(logger))
//	if err := srv.ListenAndServe(ctx, "127.0.0.1:8787"); err != nil {
//		return err
//	}
package server
