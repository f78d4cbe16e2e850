package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type fakeInvoker struct {
	body []byte
	err  error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestClient_Prompt_ExtractsText(t *testing.T) {
	respBody, _ := json.Marshal(responseBody{
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: "root cause: oom"}},
	})
	client := newWithInvoker(&fakeInvoker{body: respBody}, "anthropic.claude-sonnet-4-5-20250929-v1:0", nil)

	out, err := client.Prompt(context.Background(), "why did the pod crash?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "root cause: oom" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestClient_Prompt_RejectsEmpty(t *testing.T) {
	client := newWithInvoker(&fakeInvoker{}, "anthropic.claude-sonnet-4-5-20250929-v1:0", nil)
	if _, err := client.Prompt(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestClient_Prompt_WrapsProviderError(t *testing.T) {
	client := newWithInvoker(&fakeInvoker{err: errors.New("throttled")}, "anthropic.claude-sonnet-4-5-20250929-v1:0", nil)
	if _, err := client.Prompt(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}
