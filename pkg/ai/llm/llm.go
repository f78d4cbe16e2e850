// Package llm defines the provider-agnostic interface the agent runtime
// prompts against, along with model-alias canonicalization and a
// concrete-provider construction path (spec.md §4.2).
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/ai/llm/anthropic"
	"github.com/alertflow/operator/pkg/ai/llm/bedrock"
	"github.com/alertflow/operator/pkg/ai/llm/mock"
	"github.com/alertflow/operator/pkg/shared/errors"
)

// Client is the single operation the agent runtime needs from an LLM
// provider: send a fully-formed prompt, get back the model's raw text
// completion. Tool-calling, multi-turn state and answer parsing live
// above this interface in pkg/agent/runtime.
type Client interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// modelAliases maps human-friendly shorthand to the canonical model
// identifier a provider expects. Unknown inputs pass through unchanged
// so callers can always supply a raw provider model ID.
var modelAliases = map[string]string{
	"claude":        "claude-sonnet-4-5-20250929",
	"claude-sonnet": "claude-sonnet-4-5-20250929",
	"claude-haiku":  "claude-haiku-4-5-20251001",
	"claude-opus":   "claude-opus-4-1-20250805",
	"bedrock-claude": "anthropic.claude-sonnet-4-5-20250929-v1:0",
}

// Canonicalize resolves a model alias to its provider-specific
// identifier. Names already in canonical form, or unrecognized ones,
// are returned unchanged.
func Canonicalize(name string) string {
	if canonical, ok := modelAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return name
}

// New constructs the configured provider. It is the sum-type boundary
// of the package: exactly one of the three concrete providers is
// returned, each satisfying Client, and callers above this point never
// need to know which one they hold.
func New(cfg config.LLMConfig, logger *logrus.Logger) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, errors.ConfigurationError("llm.api_key", "required for anthropic provider")
		}
		client, err := anthropic.New(cfg.APIKey, Canonicalize(cfg.Model), logger)
		if err != nil {
			return nil, errors.FailedTo("construct anthropic client", err)
		}
		return client, nil
	case "bedrock":
		client, err := bedrock.New(context.Background(), Canonicalize(cfg.Model), cfg.Region, logger)
		if err != nil {
			return nil, errors.FailedTo("construct bedrock client", err)
		}
		return client, nil
	case "mock", "":
		return mock.New(), nil
	default:
		return nil, errors.ValidationError("llm.provider", fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}
