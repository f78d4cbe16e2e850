package behavior

import (
	"context"
	"fmt"
	"strings"

	"github.com/alertflow/operator/pkg/shared/errors"
)

// maxChatHistoryTurns bounds how much prior conversation is threaded
// into one chat call (spec.md §4.4).
const maxChatHistoryTurns = 10

// ChatTurn is one message in a chat history.
type ChatTurn struct {
	Role    string
	Content string
}

// ChatMessage is the Chatbot behavior's supported input kind.
type ChatMessage struct {
	Content   string
	History   []ChatTurn
	SessionID string
	UserID    string
}

// ChatResponse is the Chatbot behavior's output.
type ChatResponse struct {
	Message          string
	ToolCalls        []string
	SessionID        string
	SuggestedActions []string
}

// Chatbot is a conversational strategy over a Kubernetes-operations
// persona.
type Chatbot struct {
	ctx SharedContext
}

// NewChatbot builds a Chatbot over ctx.
func NewChatbot(ctx SharedContext) *Chatbot {
	return &Chatbot{ctx: ctx}
}

// SupportedKinds reports the input kinds this behavior handles.
func (c *Chatbot) SupportedKinds() []string { return []string{"ChatMessage"} }

// Handle answers one chat message, threading up to the last
// maxChatHistoryTurns turns of prior history into the prompt.
func (c *Chatbot) Handle(ctx context.Context, msg ChatMessage) (ChatResponse, error) {
	preamble := chatPreamble(msg, c.ctx.Tools.Schemas())
	answer, err := c.ctx.LLM.Prompt(ctx, preamble)
	if err != nil {
		return ChatResponse{}, errors.FailedTo("chat with llm provider", err)
	}
	return ChatResponse{
		Message:          answer,
		SessionID:        msg.SessionID,
		SuggestedActions: heuristicSuggestions(answer),
	}, nil
}

func chatPreamble(msg ChatMessage, toolSchemas map[string]map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("You are a Kubernetes operations assistant. You can discuss cluster health, ")
	b.WriteString("alerts, and remediation. You support conversational chat messages.\n\n")
	if len(toolSchemas) > 0 {
		names := make([]string, 0, len(toolSchemas))
		for name := range toolSchemas {
			names = append(names, name)
		}
		fmt.Fprintf(&b, "Available tools: %s\n\n", strings.Join(names, ", "))
	}

	history := msg.History
	if len(history) > maxChatHistoryTurns {
		history = history[len(history)-maxChatHistoryTurns:]
	}
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "user: %s\n", msg.Content)
	return b.String()
}

// heuristicSuggestions derives lightweight suggested actions from the
// response text (spec.md §4.4).
func heuristicSuggestions(text string) []string {
	lower := strings.ToLower(text)
	var suggestions []string
	if strings.Contains(lower, "pod") && strings.Contains(lower, "crash") {
		suggestions = append(suggestions, "restart the affected pod")
	}
	if strings.Contains(lower, "memory") || strings.Contains(lower, "oom") {
		suggestions = append(suggestions, "increase the memory limit")
	}
	if strings.Contains(lower, "cpu") || strings.Contains(lower, "throttl") {
		suggestions = append(suggestions, "review CPU limits and requests")
	}
	return suggestions
}
