package chat

import (
	"strings"
	"testing"

	"github.com/diirlab/xrlia/internal/core"
)

func TestTrailingToolContent(t *testing.T) {
	tests := []struct {
		name     string
		history  []core.Message
		expected string
	}{
		{
			name:     "empty history",
			history:  nil,
			expected: "",
		},
		{
			name: "no trailing tool messages",
			history: []core.Message{
				{Role: core.RoleUser, Content: "q"},
				{Role: core.RoleAssistant, Content: "a"},
			},
			expected: "",
		},
		{
			name: "single tool result",
			history: []core.Message{
				{Role: core.RoleUser, Content: "q"},
				{Role: core.RoleTool, Content: "chunk one"},
			},
			expected: "chunk one",
		},
		{
			name: "consecutive run restored to chronological order",
			history: []core.Message{
				{Role: core.RoleUser, Content: "q"},
				{Role: core.RoleTool, Content: "first"},
				{Role: core.RoleTool, Content: "second"},
				{Role: core.RoleTool, Content: "third"},
			},
			expected: "first\n\nsecond\n\nthird",
		},
		{
			name: "older tool results beyond a non-tool message are ignored",
			history: []core.Message{
				{Role: core.RoleTool, Content: "stale"},
				{Role: core.RoleAssistant, Content: "old answer"},
				{Role: core.RoleUser, Content: "new question"},
				{Role: core.RoleTool, Content: "fresh"},
			},
			expected: "fresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trailingToolContent(tt.history)
			if got != tt.expected {
				t.Errorf("trailingToolContent() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestVisibleMessages(t *testing.T) {
	history := []core.Message{
		{Role: core.RoleSystem, Content: "seed"},
		{Role: core.RoleUser, Content: "question"},
		{Role: core.RoleAssistant, Content: "", ToolCalls: []core.ToolCall{{ID: "call_1"}}},
		{Role: core.RoleTool, Content: "chunk"},
		{Role: core.RoleAssistant, Content: "plain answer"},
	}

	visible := visibleMessages(history)

	if len(visible) != 3 {
		t.Fatalf("expected 3 visible messages, got %d", len(visible))
	}
	if visible[0].Content != "seed" || visible[1].Content != "question" || visible[2].Content != "plain answer" {
		t.Errorf("unexpected visible set: %+v", visible)
	}
}

func TestBuildGenerationPrompt(t *testing.T) {
	history := []core.Message{
		{Role: core.RoleSystem, Content: "seed"},
		{Role: core.RoleUser, Content: "What confirms ETT placement?"},
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: "call_1"}}},
		{Role: core.RoleTool, Content: "Source: ett.txt\nContent: tip above carina"},
	}

	prompt := buildGenerationPrompt(history, 3000)

	if prompt[0].Role != core.RoleSystem {
		t.Fatalf("prompt must start with the grounding message, got role %s", prompt[0].Role)
	}
	if !strings.Contains(prompt[0].Content, "tip above carina") {
		t.Error("grounding message missing retrieved content")
	}
	if !strings.Contains(prompt[0].Content, "say that you don't know") {
		t.Error("grounding message missing uncertainty instruction")
	}
	for _, msg := range prompt[1:] {
		if msg.Role == core.RoleTool || len(msg.ToolCalls) > 0 {
			t.Errorf("intermediate turn leaked into visible dialogue: %+v", msg)
		}
	}
}

func TestTruncateToTokens_ShortTextUntouched(t *testing.T) {
	text := "short context"
	if got := truncateToTokens(text, 100); got != text {
		t.Errorf("short text should pass through, got %q", got)
	}
}
