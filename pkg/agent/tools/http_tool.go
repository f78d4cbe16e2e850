package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sharedhttp "github.com/alertflow/operator/pkg/shared/http"
)

const httpBodyTruncateBytes = 1000

// DefaultHTTPAllowedHosts is the allow-list used when none is
// configured (spec.md §4.1).
var DefaultHTTPAllowedHosts = []string{"localhost", "127.0.0.1"}

// HTTPTool performs a GET request against an allow-listed host
// (spec.md §4.1).
type HTTPTool struct {
	allowedHosts []string
	httpClient   *http.Client
}

// NewHTTPTool builds the tool. An empty allowedHosts list falls back to
// DefaultHTTPAllowedHosts.
func NewHTTPTool(allowedHosts []string) *HTTPTool {
	if len(allowedHosts) == 0 {
		allowedHosts = DefaultHTTPAllowedHosts
	}
	return &HTTPTool{
		allowedHosts: allowedHosts,
		httpClient:   sharedhttp.NewClientWithTimeout(10 * time.Second),
	}
}

func (t *HTTPTool) Name() string        { return "http" }
func (t *HTTPTool) Description() string { return "Perform a GET request against an allow-listed host." }

func (t *HTTPTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{"type": "string"},
		},
		"required": []string{"url"},
	}
}

func (t *HTTPTool) hostAllowed(host string) bool {
	for _, allowed := range t.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (t *HTTPTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	rawURL, _ := args["url"].(string)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return validationError(fmt.Sprintf("invalid URL: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validationError(fmt.Sprintf("scheme %q is not allowed", parsed.Scheme))
	}
	if !t.hostAllowed(parsed.Hostname()) {
		return validationError(fmt.Sprintf("host %q is not in the allow-list", parsed.Hostname()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return executionError(err.Error())
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return executionError(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, httpBodyTruncateBytes))

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	fmt.Fprintf(&b, "content-type: %s\n", resp.Header.Get("Content-Type"))
	fmt.Fprintf(&b, "content-length: %s\n\n", resp.Header.Get("Content-Length"))
	b.Write(body)

	return ok(b.String(), map[string]interface{}{"status_code": resp.StatusCode, "url": parsed.String()})
}
