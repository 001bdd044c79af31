// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/liquidgpt/internal/export"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/storage"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
	"github.com/jeranaias/liquidgpt/internal/util"
)

// HandleConversations dispatches the conversations subcommands.
func HandleConversations(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	p := NewArgParser(args.Raw, "all", "open", "json")
	dark := styles.ResolveDark(app.Config.UI.Theme)
	jsonOut := args.JSON || p.BoolFlag("json")
	out := os.Stdout

	switch strings.ToLower(p.Subcommand()) {
	case "", "list", "ls", "l":
		convs := app.Store.GetAll()
		if jsonOut {
			data, err := export.MarshalAll(convs)
			if err != nil {
				return err
			}
			return writeJSON(out, data, dark)
		}
		current, _ := app.Store.CurrentID()
		printConversationList(out, convs, current)
		return nil

	case "show", "cat":
		conv, err := resolveConversation(app.Store, p.Positional(1))
		if err != nil {
			return err
		}
		if jsonOut {
			data, err := json.MarshalIndent(conv, "", "  ")
			if err != nil {
				return err
			}
			return writeJSON(out, data, dark)
		}
		printConversation(out, conv, app.Config.UI.ShowTimestamps)
		return nil

	case "delete", "rm", "del":
		conv, err := resolveConversation(app.Store, p.Positional(1))
		if err != nil {
			return err
		}
		if !app.Store.Delete(conv.ID) {
			return fmt.Errorf("failed to delete %s", conv.ID)
		}
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("Deleted:"), conv.Title)
		return nil

	case "search", "find":
		query := JoinPositionalArgs(p, 1)
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("search text required")
		}
		results := app.Store.Search(query)
		if len(results) == 0 {
			fmt.Fprintln(out, dimStyle.Render("No matches."))
			return nil
		}
		printConversationList(out, results, "")
		return nil

	case "export":
		return exportConversations(out, app.Store, p, dark)

	case "import":
		return importConversations(out, app.Store, p.Positional(1))

	case "watch":
		return watchConversations(out, app)

	default:
		return fmt.Errorf("unknown conversations command %q (try: list, show, delete, search, export, import, watch)", p.Subcommand())
	}
}

func exportConversations(out io.Writer, store *storage.ConversationStore, p *ArgParser, dark bool) error {
	if p.BoolFlag("all") {
		data, err := export.MarshalAll(store.GetAll())
		if err != nil {
			return err
		}
		if path := p.Flag("output"); path != "" {
			if err := util.AtomicWriteFile(path, data, 0600); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", successStyle.Render("Exported to"), path)
			return nil
		}
		return writeJSON(out, data, dark)
	}

	conv, err := resolveConversation(store, p.Positional(1))
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = p.FlagOrDefault("output", ".")
	opts.OpenAfterExport = p.BoolFlag("open")
	if !dark {
		opts.Theme = "light"
	}

	exporter, err := export.ForFormat(p.FlagOrDefault("format", "md"), opts)
	if err != nil {
		return err
	}
	path, err := export.ExportToFile(&conv, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", successStyle.Render("Exported to"), path)
	return nil
}

func importConversations(out io.Writer, store *storage.ConversationStore, path string) error {
	if path == "" {
		return fmt.Errorf("file to import required")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	convs, err := export.ParseImport(data)
	if err != nil {
		return err
	}
	n, err := store.Import(convs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d of %d conversations\n", successStyle.Render("Imported"), n, len(convs))
	return nil
}

func watchConversations(out io.Writer, app *App) error {
	w, err := storage.NewWatcher(app.Store, app.Backend, 0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render("Watching"), w.Dir(), dimStyle.Render("(Ctrl+C to stop)"))

	prev := countMessages(app.Store.GetAll())
	for convs := range w.Run(ctx) {
		now := countMessages(convs)
		stamp := dimStyle.Render(time.Now().Format("15:04:05"))
		fmt.Fprintf(out, "%s %d conversations, %d messages\n", stamp, len(convs), total(now))
		for _, c := range convs {
			if delta := now[c.ID] - prev[c.ID]; delta != 0 {
				fmt.Fprintf(out, "  %s %s (%+d)\n", userStyle.Render(c.ID), c.Title, delta)
			}
		}
		prev = now
	}
	return nil
}

func countMessages(convs []model.Conversation) map[string]int {
	counts := make(map[string]int, len(convs))
	for _, c := range convs {
		counts[c.ID] = len(c.Messages)
	}
	return counts
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// =============================================================================
// OUTPUT
// =============================================================================

// printConversationList prints numbered conversations with relative dates.
// The current conversation is marked.
func printConversationList(w io.Writer, convs []model.Conversation, current string) {
	if len(convs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No conversations yet."))
		return
	}

	width := titleWidth()
	now := time.Now()
	for i, c := range convs {
		marker := "  "
		if c.ID == current {
			marker = successStyle.Render("* ")
		}
		title := util.PadRight(util.TruncateWidth(c.Title, width), width)
		fmt.Fprintf(w, "%s%3d. %s %s %s\n",
			marker, i+1, title,
			dimStyle.Render(util.PadRight(util.RelativeDate(c.CreatedTime(), now), 12)),
			dimStyle.Render(fmt.Sprintf("%d msgs", len(c.Messages))),
		)
	}
}

// printConversation prints a whole transcript.
func printConversation(w io.Writer, conv model.Conversation, timestamps bool) {
	fmt.Fprintln(w, titleStyle.Render(conv.Title))
	fmt.Fprintf(w, "%s%s\n", renderLabel("ID"), conv.ID)
	fmt.Fprintf(w, "%s%s\n", renderLabel("Created"), conv.CreatedTime().Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "%s%d\n", renderLabel("Messages"), len(conv.Messages))
	fmt.Fprintln(w, renderSeparator())

	for _, msg := range conv.Messages {
		label := userStyle.Render("You")
		switch {
		case msg.IsError:
			label = errorStyle.Render("Error")
		case msg.IsAssistant():
			label = assistantStyle.Render("Assistant")
		}
		if timestamps {
			if t := msg.Time(); !t.IsZero() {
				label += " " + dimStyle.Render(t.Local().Format("2006-01-02 15:04"))
			}
		}
		fmt.Fprintf(w, "%s\n%s\n\n", label, msg.Content)
	}
}
