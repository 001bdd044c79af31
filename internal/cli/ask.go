// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/ui/chat"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

// askResult is the --json output of ask.
type askResult struct {
	ConversationID string `json:"conversationId"`
	Model          string `json:"model"`
	Question       string `json:"question"`
	Answer         string `json:"answer,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HandleAsk sends a single question as a new conversation and prints the
// reply. With no query argument the question is read from stdin.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" && stdinPiped() {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		return fmt.Errorf("no question given. Usage: liquidgpt ask \"your question\"")
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Config.RequireAPIKey(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess := app.Session
	sess.NewChat()
	if err := sess.SendMessage(ctx, query); err != nil {
		return err
	}

	msgs := sess.Messages()
	reply := msgs[len(msgs)-1]
	result := askResult{
		ConversationID: sess.BoundID(),
		Model:          sess.Model(),
		Question:       query,
	}
	if reply.IsError {
		result.Error = cloud.UserMessage(sess.Err())
	} else {
		result.Answer = reply.Content
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printAnswer(app.Config.UI.RenderMarkdown, app.Config.UI.Theme, reply, args.Quiet, sess.Model())
	}

	if result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}
	return nil
}

func printAnswer(renderMarkdown bool, theme string, reply model.Message, quiet bool, modelID string) {
	if reply.IsError {
		return
	}
	content := reply.Content
	if renderMarkdown && IsStdoutTTY() {
		r := chat.NewMarkdownRenderer(styles.NewTheme(theme).GlamourStyle())
		content = r.Render(content, replyWidth())
	}
	fmt.Println(content)
	if !quiet && IsStdoutTTY() {
		fmt.Println(dimStyle.Render("- " + model.DisplayName(modelID)))
	}
}
