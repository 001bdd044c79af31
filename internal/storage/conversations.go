// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/model"
)

// Storage keys.
const (
	// ConversationsKey holds the JSON list of conversations.
	ConversationsKey = "liquidgpt-conversations"

	// CurrentConversationKey holds the id of the active conversation.
	CurrentConversationKey = "liquidgpt-current-conversation"

	// LegacyMessagesKey holds a flat message array written by early
	// versions. It is only ever read.
	LegacyMessagesKey = "liquidgpt-legacy-messages"
)

// DefaultMaxConversations is the number of conversations kept.
const DefaultMaxConversations = 50

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists conversations and the current-conversation
// pointer in a Backend.
type ConversationStore struct {
	backend Backend
	logger  *zap.Logger

	// MaxConversations limits stored conversations (0 = unlimited).
	// Oldest entries are dropped from the tail.
	MaxConversations int

	// now is replaced in tests.
	now func() time.Time
}

// NewConversationStore creates a store over backend. A nil logger
// disables logging.
func NewConversationStore(backend Backend, logger *zap.Logger) *ConversationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		backend:          backend,
		logger:           logger,
		MaxConversations: DefaultMaxConversations,
		now:              time.Now,
	}
}

// LoadResult is the outcome of reading the conversation collection.
type LoadResult struct {
	Conversations []model.Conversation

	// Found is false when nothing has been stored yet.
	Found bool

	// Err is set when the read failed or the stored value is corrupt.
	Err error
}

// Load reads the conversation collection, reporting read failures and
// corrupt data separately from an empty store.
func (s *ConversationStore) Load() LoadResult {
	raw, found, err := s.backend.Get(ConversationsKey)
	if err != nil {
		return LoadResult{Conversations: []model.Conversation{}, Err: err}
	}
	if !found {
		return LoadResult{Conversations: []model.Conversation{}}
	}

	var convs []model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return LoadResult{
			Conversations: []model.Conversation{},
			Found:         true,
			Err:           fmt.Errorf("%w: %v", ErrCorruptData, err),
		}
	}

	// Records without an id cannot be addressed; treat them as absent
	valid := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.ID != "" {
			valid = append(valid, c)
		}
	}
	return LoadResult{Conversations: valid, Found: true}
}

// GetAll returns all stored conversations, most recently created first.
// Unreadable or corrupt data yields an empty slice.
func (s *ConversationStore) GetAll() []model.Conversation {
	res := s.Load()
	if res.Err != nil {
		s.logger.Warn("failed to load conversations", zap.Error(res.Err))
	}
	return res.Conversations
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(id string) (*model.Conversation, bool) {
	for _, c := range s.GetAll() {
		if c.ID == id {
			conv := c
			return &conv, true
		}
	}
	return nil, false
}

// Save upserts the messages of conversation id. An existing record keeps
// its position and creation timestamp; a new record goes to the front.
// The title is re-derived on every save. Write failures are logged and
// reported as (nil, false).
func (s *ConversationStore) Save(id string, messages []model.Message) (*model.Conversation, bool) {
	if id == "" {
		s.logger.Warn("refusing to save conversation without id")
		return nil, false
	}

	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)

	now := model.FormatTimestamp(s.now())
	rec := model.Conversation{
		ID:        id,
		Messages:  msgs,
		Title:     model.DeriveTitle(msgs),
		Timestamp: now,
		UpdatedAt: now,
	}

	convs := s.GetAll()
	idx := indexOf(convs, id)
	if idx >= 0 {
		if convs[idx].Timestamp != "" {
			rec.Timestamp = convs[idx].Timestamp
		}
		convs[idx] = rec
	} else {
		convs = append([]model.Conversation{rec}, convs...)
	}

	if s.MaxConversations > 0 && len(convs) > s.MaxConversations {
		convs = convs[:s.MaxConversations]
	}

	if err := s.write(convs); err != nil {
		s.logger.Error("failed to save conversation",
			zap.String("id", id),
			zap.Int("messages", len(msgs)),
			zap.Error(err))
		return nil, false
	}
	return &rec, true
}

// Delete removes the conversation with the given id and clears the
// current pointer if it referenced it.
func (s *ConversationStore) Delete(id string) bool {
	convs := s.GetAll()
	kept := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}

	if err := s.write(kept); err != nil {
		s.logger.Error("failed to delete conversation", zap.String("id", id), zap.Error(err))
		return false
	}

	if current, ok := s.CurrentID(); ok && current == id {
		s.ClearCurrentID()
	}
	return true
}

// Search returns conversations whose title or message content contains
// query, case-insensitively.
func (s *ConversationStore) Search(query string) []model.Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	var results []model.Conversation
	for _, c := range s.GetAll() {
		if q == "" || matches(c, q) {
			results = append(results, c)
		}
	}
	return results
}

func matches(c model.Conversation, q string) bool {
	if strings.Contains(strings.ToLower(c.Title), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}

// Import merges exported conversations into the store. Records whose id
// is already stored are skipped; imported records go after existing ones
// and the cap still applies. It returns the number of records added.
func (s *ConversationStore) Import(imported []model.Conversation) (int, error) {
	res := s.Load()
	if res.Err != nil {
		return 0, fmt.Errorf("cannot import over unreadable store: %w", res.Err)
	}
	convs := res.Conversations

	seen := make(map[string]bool, len(convs))
	for _, c := range convs {
		seen[c.ID] = true
	}

	added := 0
	for _, c := range imported {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		if s.MaxConversations > 0 && len(convs) >= s.MaxConversations {
			break
		}
		if c.Title == "" {
			c.Title = model.DeriveTitle(c.Messages)
		}
		if c.Messages == nil {
			c.Messages = []model.Message{}
		}
		seen[c.ID] = true
		convs = append(convs, c)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := s.write(convs); err != nil {
		return 0, fmt.Errorf("failed to write imported conversations: %w", err)
	}
	return added, nil
}

func (s *ConversationStore) write(convs []model.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	return s.backend.Set(ConversationsKey, string(data))
}

func indexOf(convs []model.Conversation, id string) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// CURRENT CONVERSATION POINTER
// =============================================================================

// SetCurrentID records id as the active conversation.
func (s *ConversationStore) SetCurrentID(id string) bool {
	if err := s.backend.Set(CurrentConversationKey, id); err != nil {
		s.logger.Error("failed to set current conversation", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// CurrentID returns the active conversation id, if any.
func (s *ConversationStore) CurrentID() (string, bool) {
	id, found, err := s.backend.Get(CurrentConversationKey)
	if err != nil {
		s.logger.Warn("failed to read current conversation", zap.Error(err))
		return "", false
	}
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// ClearCurrentID removes the active conversation pointer.
func (s *ConversationStore) ClearCurrentID() bool {
	if err := s.backend.Remove(CurrentConversationKey); err != nil {
		s.logger.Error("failed to clear current conversation", zap.Error(err))
		return false
	}
	return true
}

// =============================================================================
// IDS
// =============================================================================

// GenerateID returns a new conversation id of the form
// conv_<unix-millis>_<9 random chars>.
func (s *ConversationStore) GenerateID() string {
	return GenerateID(s.now())
}

// GenerateID builds a conversation id stamped with t.
func GenerateID(t time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("conv_%d_%s", t.UnixMilli(), random[:9])
}

// =============================================================================
// LEGACY MIGRATION
// =============================================================================

// LegacyMessages returns the flat message array stored by early versions.
// Missing, unreadable, malformed or empty arrays report false.
func (s *ConversationStore) LegacyMessages() ([]model.Message, bool) {
	raw, found, err := s.backend.Get(LegacyMessagesKey)
	if err != nil {
		s.logger.Warn("failed to read legacy messages", zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Warn("ignoring malformed legacy messages", zap.Error(err))
		return nil, false
	}
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs, true
}

// MigrateLegacy moves a legacy flat message array into a new keyed
// conversation and makes it current. It only runs while no conversation
// collection has ever been written, so it happens at most once. The
// legacy value is left in place.
func (s *ConversationStore) MigrateLegacy() (*model.Conversation, bool) {
	if res := s.Load(); res.Found || res.Err != nil {
		return nil, false
	}

	msgs, ok := s.LegacyMessages()
	if !ok {
		return nil, false
	}

	id := s.GenerateID()
	conv, ok := s.Save(id, msgs)
	if !ok {
		return nil, false
	}
	s.SetCurrentID(id)

	s.logger.Info("migrated legacy messages",
		zap.String("id", id),
		zap.Int("messages", len(msgs)))
	return conv, true
}
