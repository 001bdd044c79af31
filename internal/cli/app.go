// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/config"
	"github.com/jeranaias/liquidgpt/internal/logging"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
	"github.com/jeranaias/liquidgpt/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App bundles the components every conversation command needs.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend storage.ClosableBackend
	Store   *storage.ConversationStore
	Client  session.Completer
	Session *session.Session
}

// NewApp loads configuration, applies command-line overrides and opens
// storage.
func NewApp(args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyArgs(cfg, args)
	return NewAppFromConfig(cfg, args.Verbose)
}

// applyArgs copies global flag overrides into cfg.
func applyArgs(cfg *config.Config, args Args) {
	if args.Model != "" {
		cfg.Chat.DefaultModel = model.ResolveModel(args.Model)
	}
	if args.Storage != "" {
		cfg.Storage.Backend = strings.ToLower(args.Storage)
	}
}

// NewAppFromConfig wires an App from an already loaded configuration.
func NewAppFromConfig(cfg *config.Config, verbose bool) (*App, error) {
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    logPath,
		Verbose: verbose,
	})
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	backend, err := storage.OpenBackend(cfg.Storage.Backend, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	store := storage.NewConversationStore(backend, logger)
	if cfg.Storage.MaxConversations > 0 {
		store.MaxConversations = cfg.Storage.MaxConversations
	}

	client := NewCompleter(cfg, logger)
	sess := session.New(store, client, logger)
	sess.SetModel(cfg.Chat.DefaultModel)

	logger.Debug("app initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("provider", cfg.Cloud.Provider),
		zap.String("model", cfg.Chat.DefaultModel),
		zap.String("key", cloud.KeyFingerprint(cfg.Cloud.APIKey)),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Store:   store,
		Client:  client,
		Session: sess,
	}, nil
}

// Close flushes the logger and closes the storage backend.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.Backend.Close()
}

// NewCompleter builds the completion client selected by cfg.Cloud.Provider.
func NewCompleter(cfg *config.Config, logger *zap.Logger) session.Completer {
	pacer := cloud.NewPacer(cfg.Cloud.RequestsPerMinute)

	if cfg.Cloud.Provider == config.ProviderOpenAI {
		return cloud.NewOpenAIClient(cloud.OpenAIOptions{
			APIKey:     cfg.Cloud.APIKey,
			BaseURL:    cfg.Cloud.BaseURL,
			HTTPClient: cloud.NewHTTPClient(cfg.Timeout()),
			Pacer:      pacer,
			Logger:     logger,
		})
	}

	client := cloud.NewOpenRouterClient(cfg.Cloud.APIKey).
		WithBaseURL(cfg.Cloud.BaseURL).
		WithPacer(pacer).
		WithLogger(logger)
	if cfg.Cloud.SiteURL != "" {
		client = client.WithSiteURL(cfg.Cloud.SiteURL)
	}
	if cfg.Cloud.SiteName != "" {
		client = client.WithSiteName(cfg.Cloud.SiteName)
	}
	if cfg.Cloud.TimeoutSecs > 0 {
		client = client.WithTimeout(cfg.Timeout())
	}
	return client
}

// =============================================================================
// CONVERSATION REFERENCES
// =============================================================================

// ErrNoSuchConversation is returned when a reference matches nothing.
var ErrNoSuchConversation = errors.New("no such conversation")

// resolveConversation finds a conversation by 1-based list position, full
// id, or unique id prefix.
func resolveConversation(store *storage.ConversationStore, ref string) (model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Conversation{}, fmt.Errorf("conversation number or id required")
	}

	convs := store.GetAll()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return model.Conversation{}, fmt.Errorf("%w: #%d (have %d)", ErrNoSuchConversation, n, len(convs))
		}
		return convs[n-1], nil
	}

	var match []model.Conversation
	for _, c := range convs {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return model.Conversation{}, fmt.Errorf("%w: %s", ErrNoSuchConversation, ref)
	case 1:
		return match[0], nil
	default:
		return model.Conversation{}, fmt.Errorf("ambiguous conversation id %q matches %d conversations", ref, len(match))
	}
}
