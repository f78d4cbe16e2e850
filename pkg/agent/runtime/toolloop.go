package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/shared/logging"
)

// toolLoop drives one bounded conversation: each turn, the model either
// requests a tool call (a line of the form "TOOL: <name> <json args>")
// or produces its final answer. A tool-validation failure aborts the
// loop and surfaces as an error so the Runtime can decide whether to
// attempt its one deterministic recovery.
type toolLoop struct {
	llm           llm.Client
	tools         tools.Registry
	maxIterations int
	logger        *logrus.Logger
}

func newToolLoop(client llm.Client, registry tools.Registry, maxIterations int, logger *logrus.Logger) *toolLoop {
	return &toolLoop{llm: client, tools: registry, maxIterations: maxIterations, logger: logger}
}

const toolInstructions = "\n\nWhen you need more information, respond with exactly one line of the form:\n" +
	"TOOL: <tool_name> <json_arguments>\n" +
	"Otherwise, respond with the final four-section answer and nothing else."

func (tl *toolLoop) run(ctx context.Context, preamble string) (string, error) {
	conversation := preamble + toolInstructions
	var last string

	for turn := 0; turn < tl.maxIterations; turn++ {
		answer, err := tl.llm.Prompt(ctx, conversation)
		if err != nil {
			return "", errors.FailedTo("prompt llm provider", err)
		}
		last = answer

		name, args, isCall := parseToolCall(answer)
		if !isCall {
			return answer, nil
		}

		tool, ok := tl.tools[name]
		if !ok {
			conversation += fmt.Sprintf("\nTOOL RESULT for %s: error: unknown tool %q\n", name, name)
			continue
		}

		result := tool.Execute(ctx, args)
		if tl.logger != nil {
			tl.logger.WithFields(logging.NewFields().
				Component("agent.runtime.toolloop").
				Operation("execute_tool").
				Custom("tool", name).
				Custom("success", result.Success).ToLogrus()).
				Debug("tool invocation completed")
		}
		if !result.Success && result.ErrorKind == tools.ErrorValidation {
			return "", fmt.Errorf("tool %q rejected call: %s", name, result.Error)
		}
		if result.Success {
			conversation += fmt.Sprintf("\nTOOL RESULT for %s: %s\n", name, result.Output)
		} else {
			conversation += fmt.Sprintf("\nTOOL RESULT for %s: error: %s\n", name, result.Error)
		}
	}
	return last, nil
}

// parseToolCall recognizes a single "TOOL: <name> <json>" line anywhere
// in the model's response.
func parseToolCall(answer string) (name string, args map[string]interface{}, ok bool) {
	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "TOOL:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "TOOL:"))
		parts := strings.SplitN(rest, " ", 2)
		toolName := strings.TrimSpace(parts[0])
		if toolName == "" {
			continue
		}
		parsedArgs := map[string]interface{}{}
		if len(parts) == 2 {
			_ = json.Unmarshal([]byte(strings.TrimSpace(parts[1])), &parsedArgs)
		}
		return toolName, parsedArgs, true
	}
	return "", nil, false
}
