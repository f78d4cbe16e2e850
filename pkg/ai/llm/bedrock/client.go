// Package bedrock implements the llm.Client contract on top of AWS
// Bedrock's InvokeModel API via aws-sdk-go-v2/service/bedrockruntime,
// targeting Claude-family models through Bedrock's Messages-compatible
// request body.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"

	sharederrors "github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/shared/logging"
)

// invoker captures the subset of the Bedrock runtime client the adapter
// uses, so tests can substitute a fake.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client adapts a single-turn text prompt onto Bedrock InvokeModel.
type Client struct {
	runtime   invoker
	modelID   string
	maxTokens int
	logger    *logrus.Logger
}

const defaultMaxTokens = 4096
const anthropicVersion = "bedrock-2023-05-31"

// New builds a Bedrock client for the given model ID (for example
// "anthropic.claude-sonnet-4-5-20250929-v1:0") in the given region,
// using the default AWS credential chain.
func New(ctx context.Context, modelID, region string, logger *logrus.Logger) (*Client, error) {
	if modelID == "" {
		return nil, sharederrors.ConfigurationError("bedrock.model", "must not be empty")
	}
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, sharederrors.FailedTo("load aws config for bedrock", err)
	}
	return &Client{
		runtime:   bedrockruntime.NewFromConfig(cfg),
		modelID:   modelID,
		maxTokens: defaultMaxTokens,
		logger:    logger,
	}, nil
}

// newWithInvoker is used by tests to inject a fake invoker.
func newWithInvoker(runtime invoker, modelID string, logger *logrus.Logger) *Client {
	return &Client{runtime: runtime, modelID: modelID, maxTokens: defaultMaxTokens, logger: logger}
}

type requestBody struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []requestMsg    `json:"messages"`
}

type requestMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseBody struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Prompt sends text as a single user turn and returns the concatenated
// text content of the model's reply.
func (c *Client) Prompt(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", sharederrors.ValidationError("prompt", "must not be empty")
	}
	body, err := json.Marshal(requestBody{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages:         []requestMsg{{Role: "user", Content: text}},
	})
	if err != nil {
		return "", sharederrors.FailedTo("marshal bedrock request body", err)
	}
	contentType := "application/json"
	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		ContentType: &contentType,
		Body:        body,
	})
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logging.NewFields().
				Component("ai.llm.bedrock").
				Operation("prompt").
				Error(err).ToLogrus()).
				Error("bedrock invoke model failed")
		}
		return "", sharederrors.NetworkError("invoke bedrock model", c.modelID, err)
	}
	var resp responseBody
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", sharederrors.FailedTo("decode bedrock response body", err)
	}
	var text2 string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text2 += block.Text
		}
	}
	if text2 == "" {
		return "", errors.New("bedrock: response contained no text content")
	}
	return text2, nil
}
