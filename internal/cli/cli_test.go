// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/config"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubCompleter struct {
	reply string
}

func (s *stubCompleter) IsConfigured() bool { return true }

func (s *stubCompleter) Complete(_ context.Context, _ []cloud.ChatMessage, _ string) (string, error) {
	return s.reply, nil
}

// newTestApp builds a memory-backed App whose session answers with reply.
func newTestApp(t *testing.T, reply string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Storage.DataDir = t.TempDir()

	app, err := NewAppFromConfig(cfg, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	app.Client = &stubCompleter{reply: reply}
	app.Session = session.New(app.Store, app.Client, nil)
	return app
}

func newTestREPL(t *testing.T, reply string) (*chatREPL, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &chatREPL{app: newTestApp(t, reply), out: &buf, quiet: true}, &buf
}

func exchange(question string) []model.Message {
	return []model.Message{model.NewUserMessage(question), model.NewAssistantMessage("answer")}
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		cmd     Command
		query   string
		sub     string
		model   string
		json    bool
		rawArgs []string
	}{
		{name: "no args opens tui", argv: nil, cmd: CmdTUI},
		{name: "ask joins words", argv: []string{"ask", "what", "is", "go"}, cmd: CmdAsk, query: "what is go", rawArgs: []string{"what", "is", "go"}},
		{name: "ask alias with inline model", argv: []string{"a", "--model=x/y", "hi"}, cmd: CmdAsk, query: "hi", model: "x/y", rawArgs: []string{"hi"}},
		{name: "conversation alias", argv: []string{"-m", "3", "c", "LIST"}, cmd: CmdConversations, sub: "list", model: "3", rawArgs: []string{"LIST"}},
		{name: "global json", argv: []string{"models", "--json"}, cmd: CmdModels, json: true, rawArgs: []string{}},
		{name: "conversation show", argv: []string{"conv", "show", "2"}, cmd: CmdConversations, sub: "show", rawArgs: []string{"show", "2"}},
		{name: "version flag", argv: []string{"--version"}, cmd: CmdVersion, rawArgs: []string{}},
		{name: "help flag", argv: []string{"-h"}, cmd: CmdHelp, rawArgs: []string{}},
		{name: "serve alias", argv: []string{"server", "--port", "9000"}, cmd: CmdServe, sub: "--port", rawArgs: []string{"--port", "9000"}},
		{name: "unknown", argv: []string{"bogus"}, cmd: CmdUnknown, sub: "bogus", rawArgs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.query, args.Query)
			assert.Equal(t, tt.sub, args.Subcommand)
			assert.Equal(t, tt.model, args.Model)
			assert.Equal(t, tt.json, args.JSON)
			if tt.rawArgs != nil {
				assert.ElementsMatch(t, tt.rawArgs, args.Raw)
			}
		})
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	_, args := ParseArgs([]string{"-q", "-v", "--storage", "sqlite", "chat"})
	assert.True(t, args.Quiet)
	assert.True(t, args.Verbose)
	assert.Equal(t, "sqlite", args.Storage)

	_, args = ParseArgs([]string{"chat", "--storage=memory"})
	assert.Equal(t, "memory", args.Storage)
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"export", "--open", "3", "--format", "html", "--output=out"}, "open")

	assert.Equal(t, "export", p.Subcommand())
	assert.Equal(t, "3", p.Positional(1))
	assert.Equal(t, "", p.Positional(5))
	assert.True(t, p.BoolFlag("open"))
	assert.Equal(t, "html", p.Flag("format"))
	assert.Equal(t, "out", p.Flag("--output"))
	assert.Equal(t, "md", p.FlagOrDefault("missing", "md"))
	assert.True(t, p.HasFlag("format"))
	assert.False(t, p.HasFlag("all"))
	assert.Equal(t, 2, p.PositionalCount())
}

func TestArgParser_ValueFlagConsumesNext(t *testing.T) {
	p := NewArgParser([]string{"export", "--open", "3"})
	assert.Equal(t, "3", p.Flag("open"))
	assert.Equal(t, "", p.Positional(1))
}

func TestArgParser_IntsAndJoin(t *testing.T) {
	p := NewArgParser([]string{"search", "hello", "big", "world", "--port", "9000", "--bad", "x", "--json=true"})

	assert.Equal(t, 9000, p.FlagIntOrDefault("port", 1))
	assert.Equal(t, 7, p.FlagIntOrDefault("bad", 7))
	_, err := p.FlagInt("missing")
	assert.Error(t, err)
	assert.True(t, p.BoolFlag("json"))
	assert.Equal(t, "hello big world", JoinPositionalArgs(p, 1))
	assert.Empty(t, p.PositionalFrom(10))
}

// =============================================================================
// CONVERSATION REFERENCES
// =============================================================================

func TestResolveConversation(t *testing.T) {
	app := newTestApp(t, "ok")
	store := app.Store
	_, ok := store.Save("abc-1", exchange("first"))
	require.True(t, ok)
	_, ok = store.Save("abc-2", exchange("second"))
	require.True(t, ok)
	_, ok = store.Save("xyz-9", exchange("third"))
	require.True(t, ok)

	// Newest first: xyz-9, abc-2, abc-1.
	conv, err := resolveConversation(store, "1")
	require.NoError(t, err)
	assert.Equal(t, "xyz-9", conv.ID)

	conv, err = resolveConversation(store, "3")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", conv.ID)

	conv, err = resolveConversation(store, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "second", conv.Title)

	conv, err = resolveConversation(store, "xy")
	require.NoError(t, err)
	assert.Equal(t, "xyz-9", conv.ID)

	_, err = resolveConversation(store, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = resolveConversation(store, "4")
	assert.ErrorIs(t, err, ErrNoSuchConversation)

	_, err = resolveConversation(store, "nope")
	assert.ErrorIs(t, err, ErrNoSuchConversation)

	_, err = resolveConversation(store, " ")
	assert.Error(t, err)
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChatREPL_SendAndHistory(t *testing.T) {
	r, buf := newTestREPL(t, "Go is a language.")

	r.send(context.Background(), "What is Go?")
	assert.Contains(t, buf.String(), "Go is a language.")

	buf.Reset()
	assert.False(t, r.handleSlashCommand("/history"))
	out := buf.String()
	assert.Contains(t, out, "What is Go?")
	assert.Contains(t, out, "Go is a language.")
}

func TestChatREPL_ListOpenDelete(t *testing.T) {
	r, buf := newTestREPL(t, "ok")
	sess := r.app.Session

	r.send(context.Background(), "alpha topic")
	alpha := sess.BoundID()
	r.handleSlashCommand("/new")
	r.send(context.Background(), "beta topic")

	buf.Reset()
	r.handleSlashCommand("/list")
	out := buf.String()
	assert.Contains(t, out, "alpha topic")
	assert.Contains(t, out, "beta topic")
	assert.Less(t, strings.Index(out, "beta topic"), strings.Index(out, "alpha topic"))

	buf.Reset()
	r.handleSlashCommand("/open 2")
	assert.Equal(t, alpha, sess.BoundID())
	assert.Contains(t, buf.String(), "alpha topic")

	buf.Reset()
	r.handleSlashCommand("/delete " + alpha)
	assert.Contains(t, buf.String(), "Deleted")
	_, ok := r.app.Store.Get(alpha)
	assert.False(t, ok)
	assert.NotEqual(t, alpha, sess.BoundID())

	buf.Reset()
	r.handleSlashCommand("/open 9")
	assert.Contains(t, buf.String(), "no such conversation")
}

func TestChatREPL_ModelCommands(t *testing.T) {
	r, buf := newTestREPL(t, "ok")

	r.handleSlashCommand("/model 2")
	assert.Equal(t, model.Catalog[1].ID, r.app.Session.Model())

	buf.Reset()
	r.handleSlashCommand("/model")
	assert.Contains(t, buf.String(), model.Catalog[1].ID)

	r.handleSlashCommand("/model vendor/custom-model")
	assert.Equal(t, "vendor/custom-model", r.app.Session.Model())

	buf.Reset()
	r.handleSlashCommand("/models")
	assert.Contains(t, buf.String(), "(custom)")
}

func TestChatREPL_ClearAndUnknown(t *testing.T) {
	r, buf := newTestREPL(t, "ok")
	r.send(context.Background(), "hello")
	require.NotEmpty(t, r.app.Session.Messages())

	r.handleSlashCommand("/clear")
	assert.Empty(t, r.app.Session.Messages())
	assert.Empty(t, r.app.Session.BoundID())

	buf.Reset()
	assert.False(t, r.handleSlashCommand("/frobnicate"))
	assert.Contains(t, buf.String(), "unknown command /frobnicate")

	assert.True(t, r.handleSlashCommand("/quit"))
	assert.True(t, r.handleSlashCommand("/Q"))
}

func TestCompleteSlashCommand(t *testing.T) {
	assert.Equal(t, []string{"/model", "/models"}, completeSlashCommand("/mo"))
	assert.Nil(t, completeSlashCommand("hello"))
}

// =============================================================================
// OUTPUT
// =============================================================================

func TestPrintConversationList(t *testing.T) {
	var buf bytes.Buffer
	printConversationList(&buf, nil, "")
	assert.Contains(t, buf.String(), "No conversations yet.")

	convs := []model.Conversation{
		{ID: "a", Title: "First chat", Timestamp: model.Now(), Messages: exchange("First chat")},
		{ID: "b", Title: "Second chat", Timestamp: model.Now()},
	}
	buf.Reset()
	printConversationList(&buf, convs, "b")
	out := buf.String()
	assert.Contains(t, out, "1. First chat")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "2 msgs")
	assert.Contains(t, out, "0 msgs")
}

func TestPrintModels(t *testing.T) {
	var buf bytes.Buffer
	printModels(&buf, model.DefaultModel)
	out := buf.String()
	for _, m := range model.Catalog {
		assert.Contains(t, out, m.ID)
	}
	assert.NotContains(t, out, "(custom)")
}

func TestHighlight(t *testing.T) {
	out := highlight(`{"key": 1}`, "json", true)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "key")

	assert.Contains(t, highlight("plain text", "no-such-language", false), "plain text")
}

func TestColorsEnabled_Environment(t *testing.T) {
	defer ForceColorsEnabled(IsStdoutTTY())

	tests := []struct {
		name               string
		noColor, force, tm string
		want               bool
	}{
		{"no color wins", "1", "1", "xterm-256color", false},
		{"forced", "", "1", "dumb", true},
		{"dumb terminal", "", "", "dumb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("FORCE_COLOR", tt.force)
			t.Setenv("TERM", tt.tm)
			resetColorDetection()
			assert.Equal(t, tt.want, ColorsEnabled())
		})
	}
}

func TestLayoutWidths(t *testing.T) {
	assert.GreaterOrEqual(t, titleWidth(), minTitleWidth)
	assert.GreaterOrEqual(t, replyWidth(), minWidth-replyGutter)
	assert.LessOrEqual(t, separatorWidth(), maxSeparatorWidth)
}

func TestWriteJSON_Plain(t *testing.T) {
	ForceColorsEnabled(false)
	defer ForceColorsEnabled(IsStdoutTTY())

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []byte(`{"a":1}`), true))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

// =============================================================================
// WIRING
// =============================================================================

func TestNewCompleter(t *testing.T) {
	cfg := config.Default()
	cfg.Cloud.APIKey = "sk-or-test"

	_, ok := NewCompleter(cfg, nil).(*cloud.OpenRouterClient)
	assert.True(t, ok)

	cfg.Cloud.Provider = config.ProviderOpenAI
	cfg.Cloud.BaseURL = "http://localhost:11434/v1"
	c := NewCompleter(cfg, nil)
	_, ok = c.(*cloud.OpenAIClient)
	assert.True(t, ok)
	assert.True(t, c.IsConfigured())
}

func TestNewCompleter_SamplingIsFixed(t *testing.T) {
	var got struct {
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	// Leftover sampling keys in an older config file are ignored.
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\ntemperature = 1.5\nmax_tokens = 50\n"), 0600))
	cfg, err := config.LoadFrom(path, "")
	require.NoError(t, err)

	for _, provider := range []string{config.ProviderOpenRouter, config.ProviderOpenAI} {
		t.Run(provider, func(t *testing.T) {
			got.Temperature, got.MaxTokens = 0, 0
			cfg.Cloud.Provider = provider
			cfg.Cloud.APIKey = "sk-or-test"
			cfg.Cloud.BaseURL = srv.URL

			reply, err := NewCompleter(cfg, nil).Complete(context.Background(),
				[]cloud.ChatMessage{{Role: "user", Content: "hi"}}, model.DefaultModel)
			require.NoError(t, err)
			assert.Equal(t, "ok", reply)
			assert.InDelta(t, 0.7, got.Temperature, 0.001)
			assert.Equal(t, 2000, got.MaxTokens)
		})
	}
}

func TestNewAppFromConfig_AppliesModel(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Storage.DataDir = t.TempDir()
	applyArgs(cfg, Args{Model: "1", Storage: "MEMORY"})

	app, err := NewAppFromConfig(cfg, false)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, model.Catalog[0].ID, app.Session.Model())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.False(t, app.Client.IsConfigured())
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func TestRunConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LIQUIDGPT_HOME", home)
	t.Setenv("LIQUIDGPT_MODEL", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	run := func(argv ...string) (string, error) {
		var buf bytes.Buffer
		err := runConfig(&buf, Args{Raw: argv})
		return buf.String(), err
	}

	out, err := run("path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml")+"\n", out)

	_, err = run("init")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, "config.toml"))
	require.NoError(t, err)

	_, err = run("init")
	assert.Error(t, err)
	_, err = run("init", "--force")
	assert.NoError(t, err)

	_, err = run("set", "chat.default_model", "vendor/model")
	require.NoError(t, err)
	out, err = run("get", "chat.default_model")
	require.NoError(t, err)
	assert.Equal(t, "vendor/model\n", out)

	_, err = run("set", "ui.theme", "neon")
	assert.Error(t, err)

	_, err = run("get", "nope.key")
	assert.ErrorIs(t, err, config.ErrUnknownKey)

	out, err = run("keys")
	require.NoError(t, err)
	assert.Contains(t, out, "storage.backend")

	out, err = run("validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	_, err = run("frobnicate")
	assert.Error(t, err)
}

func TestRunConfig_SetKeyIsHidden(t *testing.T) {
	t.Setenv("LIQUIDGPT_HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")

	var buf bytes.Buffer
	require.NoError(t, runConfig(&buf, Args{Raw: []string{"set", "cloud.api_key", "sk-or-secret-value"}}))
	assert.NotContains(t, buf.String(), "sk-or-secret-value")

	buf.Reset()
	require.NoError(t, runConfig(&buf, Args{Raw: []string{"get", "cloud.api_key"}}))
	assert.NotContains(t, buf.String(), "sk-or-secret-value")
}
