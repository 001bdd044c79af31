// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{"nil", nil, DefaultTitle},
		{"no user message", []Message{{Role: RoleAssistant, Content: "hi"}}, DefaultTitle},
		{"short", []Message{{Role: RoleUser, Content: "Hello there"}}, "Hello there"},
		{
			"six words kept",
			[]Message{{Role: RoleUser, Content: "one two three four five six seven eight"}},
			"one two three four five six",
		},
		{
			"long words cut to 40",
			[]Message{{Role: RoleUser, Content: "internationalization considerations regarding localization"}},
			"internationalization considerations rega...",
		},
		{
			"first user message wins",
			[]Message{
				{Role: RoleAssistant, Content: "Welcome"},
				{Role: RoleUser, Content: "First"},
				{Role: RoleUser, Content: "Second"},
			},
			"First",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.messages); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle_Unicode(t *testing.T) {
	content := strings.Repeat("é", 45)
	got := DeriveTitle([]Message{{Role: RoleUser, Content: content}})
	want := strings.Repeat("é", 40) + "..."
	if got != want {
		t.Errorf("DeriveTitle() = %q, want %q", got, want)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessages_DistinctIDs(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		msg := NewUserMessage("x")
		if seen[msg.ID] {
			t.Fatalf("duplicate message ID %d", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("Network error")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if !msg.IsError {
		t.Error("IsError should be true")
	}
	if msg.Content != "Error: Network error" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestMessageTimestamp_ISO8601(t *testing.T) {
	msg := NewUserMessage("x")

	if !strings.HasSuffix(msg.Timestamp, "Z") {
		t.Errorf("Timestamp should be UTC, got %q", msg.Timestamp)
	}
	if time.Since(msg.Time()) > time.Minute {
		t.Errorf("Timestamp did not parse back: %q", msg.Timestamp)
	}
}

func TestMessageJSON_BrowserFormat(t *testing.T) {
	raw := `{"id":1717000000000,"role":"assistant","content":"Error: boom","timestamp":"2024-05-29T16:26:40.000Z","isError":true}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.ID != 1717000000000 || !msg.IsError || msg.Role != RoleAssistant {
		t.Errorf("unexpected message: %+v", msg)
	}

	out, _ := json.Marshal(NewUserMessage("hi"))
	if strings.Contains(string(out), "isError") {
		t.Errorf("isError should be omitted for normal messages: %s", out)
	}
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestCatalog_ContainsDefault(t *testing.T) {
	if _, ok := LookupModel(DefaultModel); !ok {
		t.Errorf("DefaultModel %q missing from Catalog", DefaultModel)
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", Catalog[0].ID},
		{"qwen/qwen3-coder:free", "qwen/qwen3-coder:free"},
		{"llama 3.3 70b", "meta-llama/llama-3.3-70b-instruct:free"},
		{"custom/model", "custom/model"},
		{"999", "999"},
	}

	for _, tt := range tests {
		if got := ResolveModel(tt.in); got != tt.want {
			t.Errorf("ResolveModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(DefaultModel); got != "DeepSeek R1" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayName("unknown/model"); got != "unknown/model" {
		t.Errorf("DisplayName = %q", got)
	}
}
