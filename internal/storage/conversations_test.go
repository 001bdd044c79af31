// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/liquidgpt/internal/model"
)

// failingBackend fails every write after failWrites is set.
type failingBackend struct {
	*MemoryBackend
	failWrites bool
	failReads  bool
}

var errDiskFull = errors.New("disk full")

func (f *failingBackend) Get(key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("read failed")
	}
	return f.MemoryBackend.Get(key)
}

func (f *failingBackend) Set(key, value string) error {
	if f.failWrites {
		return errDiskFull
	}
	return f.MemoryBackend.Set(key, value)
}

func newTestStore(t *testing.T) (*ConversationStore, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	return NewConversationStore(backend, nil), backend
}

func exchange(question, answer string) []model.Message {
	return []model.Message{
		model.NewUserMessage(question),
		model.NewAssistantMessage(answer),
	}
}

// =============================================================================
// SAVE / GET
// =============================================================================

func TestConversationStore_SaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)

	msgs := exchange("Hello there", "Hi!")
	conv, ok := store.Save("conv_1", msgs)
	require.True(t, ok)
	require.NotNil(t, conv)
	assert.Equal(t, "Hello there", conv.Title)
	assert.Equal(t, conv.Timestamp, conv.UpdatedAt)

	got, ok := store.Get("conv_1")
	require.True(t, ok)
	assert.Equal(t, msgs, got.Messages)
	assert.Equal(t, "Hello there", got.Title)

	_, ok = store.Get("conv_missing")
	assert.False(t, ok)
}

func TestConversationStore_TitleStableAcrossSaves(t *testing.T) {
	store, _ := newTestStore(t)

	msgs := []model.Message{model.NewUserMessage("Explain the difference between goroutines and threads please")}
	conv, ok := store.Save("c", msgs)
	require.True(t, ok)
	want := conv.Title
	assert.Equal(t, "Explain the difference between goroutine...", want)

	for i := 0; i < 5; i++ {
		msgs = append(msgs, model.NewAssistantMessage(fmt.Sprintf("reply %d", i)))
		msgs = append(msgs, model.NewUserMessage(fmt.Sprintf("follow-up %d", i)))
		conv, ok = store.Save("c", msgs)
		require.True(t, ok)
		assert.Equal(t, want, conv.Title)
	}
}

func TestConversationStore_UpdateInPlace(t *testing.T) {
	store, _ := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	store.Save("a", exchange("first", "1"))
	store.Save("b", exchange("second", "2"))
	store.Save("c", exchange("third", "3"))

	store.now = func() time.Time { return base.Add(time.Hour) }
	conv, ok := store.Save("a", exchange("first edited", "1"))
	require.True(t, ok)

	all := store.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	// Creation time is kept, update time moves
	assert.Equal(t, model.FormatTimestamp(base), conv.Timestamp)
	assert.Equal(t, model.FormatTimestamp(base.Add(time.Hour)), conv.UpdatedAt)
	assert.Equal(t, "first edited", all[2].Title)
}

func TestConversationStore_CapRetainsMostRecent(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 0; i < DefaultMaxConversations+5; i++ {
		_, ok := store.Save(fmt.Sprintf("conv_%02d", i), exchange(fmt.Sprintf("q%d", i), "a"))
		require.True(t, ok)
	}

	all := store.GetAll()
	require.Len(t, all, DefaultMaxConversations)
	assert.Equal(t, "conv_54", all[0].ID)
	assert.Equal(t, "conv_05", all[len(all)-1].ID)

	for i := 0; i < 5; i++ {
		_, ok := store.Get(fmt.Sprintf("conv_%02d", i))
		assert.False(t, ok, "oldest conversations should be dropped")
	}
}

func TestConversationStore_SaveWriteFailure(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewConversationStore(backend, nil)

	_, ok := store.Save("keep", exchange("kept", "yes"))
	require.True(t, ok)

	backend.failWrites = true
	conv, ok := store.Save("lost", exchange("lost", "no"))
	assert.False(t, ok)
	assert.Nil(t, conv)

	// Nothing was partially written
	backend.failWrites = false
	assert.Equal(t, []string{"keep"}, ids(store.GetAll()))
}

func TestConversationStore_QuotaExceeded(t *testing.T) {
	store, backend := newTestStore(t)
	backend.Quota = 64

	_, ok := store.Save("big", exchange(strings.Repeat("x", 200), "y"))
	assert.False(t, ok)
	assert.Empty(t, store.GetAll())
}

func TestConversationStore_EmptyIDRejected(t *testing.T) {
	store, _ := newTestStore(t)
	_, ok := store.Save("", exchange("q", "a"))
	assert.False(t, ok)
}

// =============================================================================
// MALFORMED DATA
// =============================================================================

func TestConversationStore_CorruptData(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "{not json"},
		{"object instead of list", `{"id":"x"}`},
		{"string", `"hello"`},
		{"wrong field types", `[{"id":1,"messages":"nope"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, backend := newTestStore(t)
			require.NoError(t, backend.Set(ConversationsKey, tt.raw))

			assert.Empty(t, store.GetAll())
			assert.NotNil(t, store.GetAll())

			res := store.Load()
			assert.True(t, res.Found)
			assert.ErrorIs(t, res.Err, ErrCorruptData)

			_, ok := store.Get("x")
			assert.False(t, ok)
		})
	}
}

func TestConversationStore_RecordsWithoutIDSkipped(t *testing.T) {
	store, backend := newTestStore(t)
	require.NoError(t, backend.Set(ConversationsKey, `[{"title":"orphan"},{"id":"ok","title":"fine","messages":[]}]`))

	all := store.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "ok", all[0].ID)
}

func TestConversationStore_LoadDistinguishesEmptyFromFailure(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewConversationStore(backend, nil)

	res := store.Load()
	assert.False(t, res.Found)
	assert.NoError(t, res.Err)

	backend.failReads = true
	res = store.Load()
	assert.Error(t, res.Err)
	assert.Empty(t, store.GetAll())
}

// =============================================================================
// DELETE / CURRENT POINTER
// =============================================================================

func TestConversationStore_DeleteClearsCurrent(t *testing.T) {
	store, _ := newTestStore(t)

	store.Save("a", exchange("a", "a"))
	store.Save("b", exchange("b", "b"))
	require.True(t, store.SetCurrentID("a"))

	require.True(t, store.Delete("a"))
	_, ok := store.Get("a")
	assert.False(t, ok)
	_, ok = store.CurrentID()
	assert.False(t, ok)

	// Deleting a non-current conversation leaves the pointer alone
	require.True(t, store.SetCurrentID("b"))
	store.Save("c", exchange("c", "c"))
	require.True(t, store.Delete("c"))
	id, ok := store.CurrentID()
	assert.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestConversationStore_CurrentIDLifecycle(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok := store.CurrentID()
	assert.False(t, ok)

	store.SetCurrentID("conv_x")
	id, ok := store.CurrentID()
	assert.True(t, ok)
	assert.Equal(t, "conv_x", id)

	store.ClearCurrentID()
	_, ok = store.CurrentID()
	assert.False(t, ok)
}

// =============================================================================
// IDS
// =============================================================================

func TestGenerateID_Distinct(t *testing.T) {
	store, _ := newTestStore(t)
	fixed := time.UnixMilli(1700000000000)
	store.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := store.GenerateID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d calls", id, i)
		}
		seen[id] = true

		if !strings.HasPrefix(id, "conv_1700000000000_") {
			t.Fatalf("unexpected id format %q", id)
		}
		if suffix := strings.TrimPrefix(id, "conv_1700000000000_"); len(suffix) != 9 {
			t.Fatalf("random suffix %q should be 9 chars", suffix)
		}
	}
}

// =============================================================================
// SEARCH / IMPORT
// =============================================================================

func TestConversationStore_Search(t *testing.T) {
	store, _ := newTestStore(t)
	store.Save("go", exchange("Tell me about Go channels", "They are typed pipes"))
	store.Save("py", exchange("Python decorators", "Functions wrapping functions"))

	assert.Equal(t, []string{"go"}, ids(store.Search("CHANNELS")))
	assert.Equal(t, []string{"go"}, ids(store.Search("typed pipes")))
	assert.Equal(t, []string{"py", "go"}, ids(store.Search("")))
	assert.Empty(t, store.Search("rust"))
}

func TestConversationStore_Import(t *testing.T) {
	store, _ := newTestStore(t)
	store.Save("existing", exchange("hi", "hello"))

	imported := []model.Conversation{
		{ID: "existing", Title: "dupe"},
		{ID: "new1", Messages: exchange("imported question", "answer")},
		{ID: ""},
		{ID: "new2", Title: "Kept Title"},
	}

	n, err := store.Import(imported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := store.GetAll()
	assert.Equal(t, []string{"existing", "new1", "new2"}, ids(all))
	assert.Equal(t, "hi", all[0].Title)
	assert.Equal(t, "imported question", all[1].Title)
	assert.Equal(t, "Kept Title", all[2].Title)
	assert.NotNil(t, all[2].Messages)
}

func TestConversationStore_ImportRespectsCap(t *testing.T) {
	store, _ := newTestStore(t)
	store.MaxConversations = 3
	store.Save("a", exchange("a", "a"))

	var imported []model.Conversation
	for i := 0; i < 5; i++ {
		imported = append(imported, model.Conversation{ID: fmt.Sprintf("i%d", i)})
	}

	n, err := store.Import(imported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.GetAll(), 3)
}

// =============================================================================
// LEGACY MIGRATION
// =============================================================================

func TestConversationStore_MigrateLegacy(t *testing.T) {
	store, backend := newTestStore(t)
	legacy := `[{"id":1,"role":"user","content":"old question","timestamp":"2024-01-01T00:00:00.000Z"},` +
		`{"id":2,"role":"assistant","content":"old answer","timestamp":"2024-01-01T00:00:01.000Z"}]`
	require.NoError(t, backend.Set(LegacyMessagesKey, legacy))

	conv, ok := store.MigrateLegacy()
	require.True(t, ok)
	assert.Equal(t, "old question", conv.Title)
	assert.Len(t, conv.Messages, 2)

	all := store.GetAll()
	require.Len(t, all, 1)
	current, ok := store.CurrentID()
	require.True(t, ok)
	assert.Equal(t, all[0].ID, current)

	// Legacy data is untouched and not migrated twice
	raw, found, _ := backend.Get(LegacyMessagesKey)
	assert.True(t, found)
	assert.Equal(t, legacy, raw)

	_, ok = store.MigrateLegacy()
	assert.False(t, ok)
	assert.Len(t, store.GetAll(), 1)
}

func TestConversationStore_MigrateLegacyIgnoresBadData(t *testing.T) {
	for _, raw := range []string{"[]", `{"id":1}`, "oops"} {
		store, backend := newTestStore(t)
		require.NoError(t, backend.Set(LegacyMessagesKey, raw))

		_, ok := store.MigrateLegacy()
		assert.False(t, ok, raw)
		assert.Empty(t, store.GetAll())
	}
}

func TestConversationStore_NoMigrationOnceCollectionExists(t *testing.T) {
	store, backend := newTestStore(t)
	store.Save("a", exchange("a", "a"))
	store.Delete("a")
	require.NoError(t, backend.Set(LegacyMessagesKey, `[{"id":1,"role":"user","content":"x","timestamp":""}]`))

	_, ok := store.MigrateLegacy()
	assert.False(t, ok)
}

func ids(convs []model.Conversation) []string {
	out := make([]string, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}
