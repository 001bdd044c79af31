// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/session"
	"github.com/jeranaias/liquidgpt/internal/storage"
	"github.com/jeranaias/liquidgpt/internal/ui/chat"
	"github.com/jeranaias/liquidgpt/internal/ui/styles"
)

// HandleTUI runs the full-screen chat interface.
func HandleTUI(args Args) error {
	if !interactive() {
		return fmt.Errorf("the interactive interface needs a terminal (try: liquidgpt chat or liquidgpt ask)")
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restored := app.Session.Restore()
	m := chat.New(app.Session, chat.Options{
		Theme:          styles.NewTheme(app.Config.UI.Theme),
		RenderMarkdown: app.Config.UI.RenderMarkdown,
		ShowTimestamps: app.Config.UI.ShowTimestamps,
		Logger:         app.Logger,
		Context:        ctx,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if restored == session.RestoredLegacy {
		go p.Send(chat.StatusMsg{Text: "Migrated messages from an earlier version"})
	}
	if !app.Client.IsConfigured() {
		go p.Send(chat.StatusMsg{Text: "OPENROUTER_API_KEY is not set; messages cannot be sent", IsError: true})
	}

	watchStorage(ctx, app, p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interface error: %w", err)
	}
	return nil
}

// watchStorage refreshes the sidebar when another process changes
// storage. Backends that cannot be watched are skipped.
func watchStorage(ctx context.Context, app *App, p *tea.Program) {
	w, err := storage.NewWatcher(app.Store, app.Backend, 0)
	if err != nil {
		if !errors.Is(err, storage.ErrNotWatchable) {
			app.Logger.Warn("storage watch disabled", zap.Error(err))
		}
		return
	}
	go func() {
		for convs := range w.Run(ctx) {
			p.Send(chat.ConversationsMsg{Conversations: convs})
		}
	}()
}
