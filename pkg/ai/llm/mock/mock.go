// Package mock implements a deterministic LLM provider keyed by
// substrings in the prompt, used in tests and local development in
// place of a real provider (spec.md §4.2).
package mock

import (
	"context"
	"strings"
)

// CannedResponse pairs a prompt substring trigger with the response
// text returned when it matches.
type CannedResponse struct {
	Trigger  string
	Response string
}

// Client is the deterministic mock LLM provider.
type Client struct {
	responses []CannedResponse
	fallback  string
}

// New builds a mock client with the default canned responses used by
// the investigator's worked example (spec.md S2: PodCrashLooping).
func New() *Client {
	return &Client{
		responses: []CannedResponse{
			{
				Trigger: "confidence",
				Response: "85",
			},
			{
				Trigger: "pod",
				Response: podCrashLoopingAnswer,
			},
			{
				Trigger: "crash",
				Response: podCrashLoopingAnswer,
			},
		},
		fallback: "ROOT CAUSE: unknown\nFINDINGS:\n- no additional information available\nRECOMMENDATIONS:\n- gather more diagnostics\nAUTO-FIX: no",
	}
}

// NewWithResponses builds a mock client with caller-supplied canned
// responses, falling back to the given default when nothing matches.
func NewWithResponses(responses []CannedResponse, fallback string) *Client {
	return &Client{responses: responses, fallback: fallback}
}

// Prompt returns the first canned response whose trigger substring
// appears in text (case-insensitive), or the fallback.
func (c *Client) Prompt(_ context.Context, text string) (string, error) {
	lower := strings.ToLower(text)
	for _, r := range c.responses {
		if strings.Contains(lower, strings.ToLower(r.Trigger)) {
			return r.Response, nil
		}
	}
	return c.fallback, nil
}

const podCrashLoopingAnswer = `ROOT CAUSE: The container was terminated by the kernel OOM killer; the application's memory usage exceeded its configured limit, producing an OutOfMemoryError before the crash loop began.

FINDINGS:
- Pod restart count is elevated over the last hour
- Container exit code 137 indicates an OOM kill
- Memory usage climbed steadily before each restart
- No corresponding CPU throttling was observed

RECOMMENDATIONS:
- Increase the deployment's memory limit to accommodate peak usage
- Add a memory usage alert below the current limit to catch this earlier
- Review the application for a possible memory leak
- Consider a horizontal pod autoscaler if load is the driver

AUTO-FIX: yes
kubectl patch deployment api -n production -p '{"spec":{"template":{"spec":{"containers":[{"name":"api","resources":{"limits":{"memory":"512Mi"}}}]}}}}'
`
