// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/config"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
	"github.com/jeranaias/liquidgpt/internal/ui/chat"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
	"github.com/jeranaias/liquidgpt/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history kept next to the config file.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlashCommand)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

var slashCommands = []string{
	"/new", "/clear", "/list", "/open", "/delete", "/model", "/models", "/history", "/help", "/quit",
}

func completeSlashCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, cmd := range slashCommands {
		if strings.HasPrefix(cmd, line) {
			out = append(out, cmd)
		}
	}
	return out
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatREPL holds what the slash commands operate on. Output goes to out
// so the command handling is testable without a terminal.
type chatREPL struct {
	app      *App
	out      io.Writer
	markdown *chat.MarkdownRenderer
	quiet    bool
}

// HandleChat runs the interactive line chat.
func HandleChat(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Config.RequireAPIKey(); err != nil {
		return err
	}

	theme := styles.NewTheme(app.Config.UI.Theme)
	r := &chatREPL{
		app:   app,
		out:   os.Stdout,
		quiet: args.Quiet,
	}
	if app.Config.UI.RenderMarkdown && IsStdoutTTY() {
		r.markdown = chat.NewMarkdownRenderer(theme.GlamourStyle())
	}

	switch app.Session.Restore() {
	case session.RestoredCurrent:
		if !args.Quiet {
			fmt.Fprintln(r.out, dimStyle.Render("Resumed your last conversation. /new starts a fresh one."))
		}
	case session.RestoredLegacy:
		if !args.Quiet {
			fmt.Fprintln(r.out, dimStyle.Render("Migrated messages from an earlier version into a new conversation."))
		}
	}
	if !args.Quiet {
		r.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	for {
		line, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C (ErrPromptAborted) and Ctrl+D (io.EOF) both exit.
			fmt.Fprintln(r.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.handleSlashCommand(line); quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		r.send(ctx, line)
	}
}

// send runs one exchange and prints the reply or the error.
func (r *chatREPL) send(ctx context.Context, text string) {
	start := time.Now()
	done := make(chan struct{})
	if !r.quiet {
		go r.thinking(done)
	}

	err := r.app.Session.SendMessage(ctx, text)
	close(done)

	if err != nil {
		switch {
		case errors.Is(err, session.ErrEmptyMessage):
		default:
			fmt.Fprintf(r.out, "%s %s\n", errorStyle.Render("[Error]"), cloud.UserMessage(err))
		}
		return
	}

	msgs := r.app.Session.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	r.printMessage(last)
	if !r.quiet && !last.IsError {
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("(%s, %.1fs)", model.DisplayName(r.app.Session.Model()), time.Since(start).Seconds())))
	}
}

// thinking prints a status line until done is closed.
func (r *chatREPL) thinking(done <-chan struct{}) {
	if !IsStdoutTTY() {
		return
	}
	fmt.Fprint(r.out, dimStyle.Render("Thinking..."))
	<-done
	fmt.Fprint(r.out, "\r\033[K")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a slash command and reports whether to exit.
func (r *chatREPL) handleSlashCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	sess := r.app.Session

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		r.printHelp()

	case "/new", "/n":
		sess.NewChat()
		fmt.Fprintln(r.out, successStyle.Render("Started a new conversation."))

	case "/clear", "/c":
		sess.ClearChat()
		fmt.Fprintln(r.out, successStyle.Render("Conversation cleared."))

	case "/list", "/ls", "/l":
		printConversationList(r.out, r.app.Store.GetAll(), sess.BoundID())

	case "/open", "/o":
		conv, err := resolveConversation(r.app.Store, arg)
		if err != nil {
			r.printError(err)
			return false
		}
		if !sess.SelectConversation(conv.ID) {
			r.printError(ErrNoSuchConversation)
			return false
		}
		fmt.Fprintln(r.out, successStyle.Render("Opened: ")+conv.Title)
		r.printHistory()

	case "/delete", "/del", "/rm":
		conv, err := resolveConversation(r.app.Store, arg)
		if err != nil {
			r.printError(err)
			return false
		}
		sess.DeleteConversation(conv.ID)
		fmt.Fprintln(r.out, successStyle.Render("Deleted: ")+conv.Title)

	case "/model", "/m":
		if arg == "" {
			fmt.Fprintf(r.out, "Current model: %s (%s)\n", model.DisplayName(sess.Model()), sess.Model())
			return false
		}
		id := model.ResolveModel(arg)
		sess.SetModel(id)
		fmt.Fprintln(r.out, successStyle.Render("Model: ")+model.DisplayName(id))

	case "/models":
		printModels(r.out, sess.Model())

	case "/history", "/hist":
		r.printHistory()

	default:
		r.printError(fmt.Errorf("unknown command %s (try /help)", cmd))
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, titleStyle.Render("LiquidGPT"))
	fmt.Fprintf(r.out, "Model: %s\n", model.DisplayName(r.app.Session.Model()))
	fmt.Fprintln(r.out, dimStyle.Render("Type a message, or /help for commands. Ctrl+D exits."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printHelp() {
	help := [][2]string{
		{"/new", "Start a new conversation"},
		{"/clear", "Clear the current conversation"},
		{"/list", "List stored conversations"},
		{"/open <n|id>", "Open a conversation"},
		{"/delete <n|id>", "Delete a conversation"},
		{"/model [n|id]", "Show or switch the model"},
		{"/models", "List models"},
		{"/history", "Print the current conversation"},
		{"/quit", "Exit"},
	}
	for _, h := range help {
		fmt.Fprintf(r.out, "  %s %s\n", promptStyle.Render(util.PadRight(h[0], 16)), h[1])
	}
}

func (r *chatREPL) printHistory() {
	msgs := r.app.Session.Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, dimStyle.Render("(no messages)"))
		return
	}
	for _, msg := range msgs {
		r.printMessage(msg)
	}
}

func (r *chatREPL) printMessage(msg model.Message) {
	var label string
	switch {
	case msg.IsError:
		label = errorStyle.Render("Error")
	case msg.IsUser():
		label = userStyle.Render("You")
	default:
		label = assistantStyle.Render("Assistant")
	}
	if r.app.Config.UI.ShowTimestamps {
		if t := msg.Time(); !t.IsZero() {
			label += " " + dimStyle.Render(t.Local().Format("15:04"))
		}
	}

	content := msg.Content
	if r.markdown != nil && msg.IsAssistant() && !msg.IsError {
		content = r.markdown.Render(content, replyWidth())
	}
	fmt.Fprintf(r.out, "%s\n%s\n\n", label, content)
}

func (r *chatREPL) printError(err error) {
	fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("[Error]"), err)
}
