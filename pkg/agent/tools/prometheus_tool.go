package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	sharedhttp "github.com/alertflow/operator/pkg/shared/http"
)

const maxPromQLLength = 1000

var promQLDangerousTokens = []string{";", "&&", "||"}

// PrometheusTool issues instant PromQL queries against a configured
// Prometheus endpoint (spec.md §4.1).
type PrometheusTool struct {
	endpoint    string
	bearerToken string
	httpClient  *http.Client
}

// NewPrometheusTool builds the tool with the default 30-second timeout
// (spec.md §4.1).
func NewPrometheusTool(endpoint, bearerToken string) *PrometheusTool {
	return &PrometheusTool{
		endpoint:    strings.TrimRight(endpoint, "/"),
		bearerToken: bearerToken,
		httpClient:  sharedhttp.NewClient(sharedhttp.PrometheusClientConfig(30 * time.Second)),
	}
}

func (t *PrometheusTool) Name() string        { return "prometheus" }
func (t *PrometheusTool) Description() string { return "Run an instant PromQL query against the configured Prometheus endpoint." }

func (t *PrometheusTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "PromQL instant query expression"},
		},
		"required": []string{"query"},
	}
}

func (t *PrometheusTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	query, _ := args["query"].(string)
	if len(query) > maxPromQLLength {
		return validationError(fmt.Sprintf("query exceeds maximum length of %d characters", maxPromQLLength))
	}
	for _, tok := range promQLDangerousTokens {
		if strings.Contains(query, tok) {
			return validationError(fmt.Sprintf("query rejected: contains %q", tok))
		}
	}

	reqURL := fmt.Sprintf("%s/api/v1/query?query=%s", t.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return executionError(err.Error())
	}
	if t.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.bearerToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return executionError(err.Error())
	}
	defer resp.Body.Close()

	var decoded promResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return executionError(fmt.Sprintf("decode prometheus response: %v", err))
	}
	if decoded.Status != "success" {
		return executionError(fmt.Sprintf("prometheus query failed: %s", decoded.Error))
	}

	return ok(formatPromResult(decoded), map[string]interface{}{"query": query})
}

type promResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}      `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func formatPromResult(r promResponse) string {
	if len(r.Data.Result) == 0 {
		return "no results"
	}
	var b strings.Builder
	for _, series := range r.Data.Result {
		keys := make([]string, 0, len(series.Metric))
		for k := range series.Metric {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%q", k, series.Metric[k]))
		}
		var value, ts interface{}
		if len(series.Value) == 2 {
			ts, value = series.Value[0], series.Value[1]
		}
		fmt.Fprintf(&b, "{%s} value=%v timestamp=%v\n", strings.Join(pairs, ","), value, ts)
	}
	return b.String()
}
