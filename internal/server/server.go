// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8787

	// MaxRequestBodySize is the maximum size for request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Server serves one chat session over HTTP.
type Server struct {
	session *session.Session
	logger  *zap.Logger
	router  *mux.Router
	limiter *RateLimiter
	cors    *CORSConfig
	version string
	started time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithRateLimiter replaces the per-client rate limiter. nil disables it.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithCORS replaces the CORS configuration.
func WithCORS(cfg *CORSConfig) Option {
	return func(s *Server) { s.cors = cfg }
}

// New creates a server for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session: sess,
		logger:  zap.NewNop(),
		router:  mux.NewRouter(),
		limiter: DefaultRateLimiter(),
		cors:    DefaultCORSConfig(),
		version: "dev",
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)

	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/messages", s.handleSendMessage).Methods(http.MethodPost)
	api.HandleFunc("/session/new", s.handleNewChat).Methods(http.MethodPost)
	api.HandleFunc("/session/clear", s.handleClearChat).Methods(http.MethodPost)
	api.HandleFunc("/session/model", s.handleSetModel).Methods(http.MethodPut)

	api.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/select", s.handleSelectConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cors),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// SendRequest is the body of POST /api/session/messages.
type SendRequest struct {
	Content string `json:"content"`
}

// ModelRequest is the body of PUT /api/session/model.
type ModelRequest struct {
	Model string `json:"model"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Configured    bool   `json:"configured"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ModelsResponse lists selectable models.
type ModelsResponse struct {
	Models  []model.ModelInfo `json:"models"`
	Default string            `json:"default"`
	Current string            `json:"current"`
}

// ConversationSummary is a list entry without messages.
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Timestamp    string `json:"timestamp"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	MessageCount int    `json:"messageCount"`
	Preview      string `json:"preview"`
	Current      bool   `json:"current"`
}

// ConversationsResponse is returned by GET /api/conversations.
type ConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	CurrentID     string                `json:"currentId,omitempty"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Configured:    s.session.Configured(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:  model.Catalog,
		Default: model.DefaultModel,
		Current: s.session.Model(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

// handleSendMessage blocks until the reply (or failure notice) has been
// appended. A disconnecting client does not cancel the completion.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.session.SendMessage(context.WithoutCancel(r.Context()), req.Content)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.session.State())
	case errors.Is(err, session.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cloud.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, cloud.UserMessage(err))
	default:
		s.logger.Error("send failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send message")
	}
}

func (s *Server) handleNewChat(w http.ResponseWriter, _ *http.Request) {
	s.session.NewChat()
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleClearChat(w http.ResponseWriter, _ *http.Request) {
	s.session.ClearChat()
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.Model)
	if id == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	s.session.SetModel(id)
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	current := s.session.BoundID()
	convs := s.session.Store().GetAll()

	resp := ConversationsResponse{
		Conversations: make([]ConversationSummary, 0, len(convs)),
		CurrentID:     current,
	}
	for i := range convs {
		c := &convs[i]
		resp.Conversations = append(resp.Conversations, ConversationSummary{
			ID:           c.ID,
			Title:        c.Title,
			Timestamp:    c.Timestamp,
			UpdatedAt:    c.UpdatedAt,
			MessageCount: c.MessageCount(),
			Preview:      c.Preview(),
			Current:      c.ID == current,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, ok := s.session.Store().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.session.SelectConversation(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.session.DeleteConversation(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Completions can take a while.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", zap.String("addr", ln.Addr().String()), zap.String("version", s.version))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// decode reads a size-limited JSON body into v. It writes the error
// response itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "request body is empty")
	default:
		s.logger.Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
	}
	return false
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
