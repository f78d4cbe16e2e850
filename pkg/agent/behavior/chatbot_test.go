package behavior

import (
	"context"
	"strings"
	"testing"

	"github.com/alertflow/operator/pkg/ai/llm/mock"
)

func TestChatbot_Handle_ReturnsSuggestions(t *testing.T) {
	client := mock.NewWithResponses([]mock.CannedResponse{
		{Trigger: "is it crashing", Response: "The pod is crash looping, likely due to an OOM condition."},
	}, "I don't have enough information.")

	bot := NewChatbot(SharedContext{LLM: client})
	resp, err := bot.Handle(context.Background(), ChatMessage{Content: "is it crashing?", SessionID: "s1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SessionID != "s1" {
		t.Fatalf("expected session id to round-trip, got %q", resp.SessionID)
	}
	if len(resp.SuggestedActions) == 0 {
		t.Fatal("expected at least one suggested action")
	}
}

func TestChatPreamble_BoundsHistoryTo10Turns(t *testing.T) {
	history := make([]ChatTurn, 20)
	for i := range history {
		history[i] = ChatTurn{Role: "user", Content: "turn"}
	}
	preamble := chatPreamble(ChatMessage{Content: "hi", History: history}, nil)
	if strings.Count(preamble, "turn") > maxChatHistoryTurns {
		t.Fatalf("expected history to be bounded to %d turns", maxChatHistoryTurns)
	}
}
