// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/cloud"
	"github.com/jeranaias/liquidgpt/internal/model"
	"github.com/jeranaias/liquidgpt/internal/storage"
)

var (
	// ErrInFlight is returned when a send is attempted while another is pending.
	ErrInFlight = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// Completer produces a reply for a message history.
type Completer interface {
	Complete(ctx context.Context, messages []cloud.ChatMessage, model string) (string, error)
	IsConfigured() bool
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the active conversation state. It is safe for concurrent
// use; the lock is never held while a completion is in flight.
type Session struct {
	mu sync.Mutex

	store  *storage.ConversationStore
	client Completer
	logger *zap.Logger

	messages []model.Message
	binding  Binding
	model    string
	loading  bool
	lastErr  error

	// epoch changes whenever the message list is replaced, so a reply
	// arriving after a switch is not appended to the wrong list.
	epoch uint64
}

// State is a snapshot of the session.
type State struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Model          string          `json:"model"`
	Loading        bool            `json:"loading"`
	Error          string          `json:"error,omitempty"`
	Messages       []model.Message `json:"messages"`
}

// New creates an unbound session using the default model.
func New(store *storage.ConversationStore, client Completer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:    store,
		client:   client,
		logger:   logger,
		messages: []model.Message{},
		model:    model.DefaultModel,
	}
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage appends text as a user message, requests a reply with the
// full history and appends the reply (or a failure notice). The list is
// persisted after each append.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !s.client.IsConfigured() {
		return fmt.Errorf("cannot send message: %w", cloud.ErrNotConfigured)
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrInFlight
	}

	if !s.binding.IsBound() {
		s.bindLocked(s.store.GenerateID())
	}

	s.messages = append(s.messages, model.NewUserMessage(text))
	s.persistLocked()
	s.lastErr = nil
	s.loading = true

	sent := s.snapshotLocked()
	history := toHistory(sent)
	selected := s.model
	conversationID := s.binding.ID()
	epoch := s.epoch
	s.mu.Unlock()

	reply, err := s.client.Complete(ctx, history, selected)

	var msg model.Message
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("conversation", conversationID),
			zap.String("model", selected),
			zap.Error(err))
		msg = model.NewErrorMessage(cloud.UserMessage(err))
	} else {
		msg = model.NewAssistantMessage(reply)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	// A conversation selected again while its reply was pending was
	// reloaded from the store, so the reply still belongs to the shown list.
	if s.epoch != epoch && s.binding.ID() != conversationID {
		s.deliverElsewhere(conversationID, sent, msg)
		return nil
	}

	s.messages = append(s.messages, msg)
	s.persistLocked()
	if err != nil {
		s.lastErr = err
	}
	return nil
}

// deliverElsewhere stores a reply for a conversation that is no longer
// shown. Conversations deleted in the meantime are not resurrected.
func (s *Session) deliverElsewhere(id string, sent []model.Message, reply model.Message) {
	if _, ok := s.store.Get(id); !ok {
		s.logger.Info("dropping reply for deleted conversation", zap.String("conversation", id))
		return
	}
	s.store.Save(id, append(sent, reply))
}

func toHistory(messages []model.Message) []cloud.ChatMessage {
	history := make([]cloud.ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, cloud.ChatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return history
}

// =============================================================================
// CONVERSATION SWITCHING
// =============================================================================

// NewChat starts an empty conversation bound to a fresh id.
func (s *Session) NewChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	id := s.store.GenerateID()
	s.bindLocked(id)
	return id
}

// ClearChat empties the visible list and unbinds it. The stored
// conversation is left intact.
func (s *Session) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.binding = Unbound()
	s.store.ClearCurrentID()
}

// SelectConversation shows the stored conversation id. Unknown ids leave
// the session unchanged and report false.
func (s *Session) SelectConversation(id string) bool {
	conv, ok := s.store.Get(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if conv.Messages != nil {
		s.messages = append(s.messages, conv.Messages...)
	}
	s.bindLocked(id)
	return true
}

// DeleteConversation removes a stored conversation. Deleting the bound
// conversation starts a new chat.
func (s *Session) DeleteConversation(id string) bool {
	if !s.store.Delete(id) {
		return false
	}

	s.mu.Lock()
	bound := s.binding.ID() == id
	s.mu.Unlock()

	if bound {
		s.NewChat()
	}
	return true
}

// SetModel selects the model used for subsequent sends.
func (s *Session) SetModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = id
}

// RestoreResult describes what Restore found.
type RestoreResult int

const (
	// RestoredNothing means the session starts empty and unbound.
	RestoredNothing RestoreResult = iota
	// RestoredCurrent means the current conversation was reloaded.
	RestoredCurrent
	// RestoredLegacy means legacy messages were migrated.
	RestoredLegacy
)

// Restore reloads the conversation named by the current pointer, or
// migrates legacy messages into a new conversation when there is none.
func (s *Session) Restore() RestoreResult {
	if id, ok := s.store.CurrentID(); ok {
		if conv, ok := s.store.Get(id); ok && len(conv.Messages) > 0 {
			s.load(id, conv.Messages)
			return RestoredCurrent
		}
	}

	if conv, ok := s.store.MigrateLegacy(); ok {
		s.load(conv.ID, conv.Messages)
		return RestoredLegacy
	}
	return RestoredNothing
}

func (s *Session) load(id string, messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.messages = append(s.messages, messages...)
	s.binding = Bound(id)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the visible messages.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Binding returns the current binding.
func (s *Session) Binding() Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binding
}

// BoundID returns the bound conversation id, or "" when unbound.
func (s *Session) BoundID() string {
	return s.Binding().ID()
}

// Model returns the selected model id.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Loading reports whether a completion is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error of the last failed completion, if it has not
// been cleared by a later send or a conversation switch.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// State returns a snapshot of the whole session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ConversationID: s.binding.ID(),
		Model:          s.model,
		Loading:        s.loading,
		Messages:       s.snapshotLocked(),
	}
	if s.lastErr != nil {
		st.Error = cloud.UserMessage(s.lastErr)
	}
	return st
}

// Configured reports whether the completion client has credentials.
func (s *Session) Configured() bool {
	return s.client.IsConfigured()
}

// Store returns the conversation store backing the session.
func (s *Session) Store() *storage.ConversationStore {
	return s.store
}

// =============================================================================
// HELPERS (callers hold s.mu)
// =============================================================================

func (s *Session) bindLocked(id string) {
	s.binding = Bound(id)
	s.store.SetCurrentID(id)
}

func (s *Session) resetLocked() {
	s.messages = []model.Message{}
	s.lastErr = nil
	s.epoch++
}

func (s *Session) snapshotLocked() []model.Message {
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// persistLocked flushes the list under the bound id. Unbound sessions and
// empty lists are never written.
func (s *Session) persistLocked() {
	if !s.binding.IsBound() || len(s.messages) == 0 {
		return
	}
	s.store.Save(s.binding.ID(), s.messages)
}
