package llm

import (
	"testing"

	"github.com/alertflow/operator/internal/config"
)

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"claude":          "claude-sonnet-4-5-20250929",
		"Claude-Sonnet":   "claude-sonnet-4-5-20250929",
		"claude-haiku":    "claude-haiku-4-5-20251001",
		"already-precise": "already-precise",
	}
	for input, want := range cases {
		if got := Canonicalize(input); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNew_DefaultsToMockProvider(t *testing.T) {
	client, err := New(config.LLMConfig{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "not-a-provider"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNew_AnthropicRequiresAPIKey(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "anthropic", Model: "claude"}, nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}
