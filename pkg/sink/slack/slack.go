// Package slack is the real Slack delivery adapter for sink dispatch,
// built on github.com/slack-go/slack.
package slack

import (
	"context"
	"encoding/json"

	"github.com/slack-go/slack"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

// Sink posts a rendered summary of a workflow output context to one
// Slack channel.
type Sink struct {
	client  *slack.Client
	channel string
}

// New builds a Sink posting with token to channel.
func New(token, channel string) *Sink {
	return &Sink{client: slack.New(token), channel: channel}
}

func (s *Sink) Send(ctx context.Context, view types.TemplateView) error {
	summary, err := summarize(view)
	if err != nil {
		return errors.FailedTo("render slack summary", err)
	}
	_, _, err = s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(summary, false))
	if err != nil {
		return errors.NetworkError("post slack message", s.channel, err)
	}
	return nil
}

func summarize(view types.TemplateView) (string, error) {
	data, err := json.MarshalIndent(map[string]interface{}{
		"outputs":  view.Outputs,
		"metadata": view.Metadata,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return "```\n" + string(data) + "\n```", nil
}
