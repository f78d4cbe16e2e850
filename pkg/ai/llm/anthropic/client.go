// Package anthropic implements the llm.Client contract on top of the
// Anthropic Claude Messages API via github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	sharederrors "github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/shared/logging"
)

// messagesClient captures the subset of the Anthropic SDK client the
// adapter uses, so tests can substitute a fake.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client adapts a single-turn text prompt onto Anthropic's Messages API.
type Client struct {
	msg       messagesClient
	model     string
	maxTokens int64
	logger    *logrus.Logger
}

const defaultMaxTokens = 4096

// New builds an Anthropic client authenticated with apiKey, defaulting
// completions to model.
func New(apiKey, model string, logger *logrus.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, sharederrors.ConfigurationError("anthropic.api_key", "must not be empty")
	}
	if model == "" {
		return nil, sharederrors.ConfigurationError("anthropic.model", "must not be empty")
	}
	sdkClient := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		msg:       &sdkClient.Messages,
		model:     model,
		maxTokens: defaultMaxTokens,
		logger:    logger,
	}, nil
}

// newWithMessagesClient is used by tests to inject a fake messagesClient.
func newWithMessagesClient(msg messagesClient, model string, logger *logrus.Logger) *Client {
	return &Client{msg: msg, model: model, maxTokens: defaultMaxTokens, logger: logger}
}

// Prompt sends text as a single user turn and returns the concatenated
// text content of the assistant's reply.
func (c *Client) Prompt(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", sharederrors.ValidationError("prompt", "must not be empty")
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(text)),
		},
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logging.NewFields().
				Component("ai.llm.anthropic").
				Operation("prompt").
				Error(err).ToLogrus()).
				Error("anthropic completion failed")
		}
		return "", sharederrors.NetworkError("complete anthropic prompt", "api.anthropic.com", err)
	}
	return extractText(msg)
}

func extractText(msg *sdk.Message) (string, error) {
	if msg == nil {
		return "", errors.New("anthropic: nil response message")
	}
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", errors.New("anthropic: response contained no text content")
	}
	return out, nil
}
