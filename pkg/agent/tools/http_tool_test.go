package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPTool_RejectsDisallowedScheme(t *testing.T) {
	tool := NewHTTPTool(nil)
	result := tool.Execute(context.Background(), map[string]interface{}{"url": "ftp://example.com"})
	if result.Success {
		t.Fatal("expected ftp scheme to be rejected")
	}
}

func TestHTTPTool_RejectsDisallowedHost(t *testing.T) {
	tool := NewHTTPTool(nil)
	result := tool.Execute(context.Background(), map[string]interface{}{"url": "https://evil.example.com/"})
	if result.Success {
		t.Fatal("expected host outside allow-list to be rejected")
	}
	if result.ErrorKind != ErrorValidation {
		t.Fatalf("expected validation error, got %v", result.ErrorKind)
	}
}

func TestHTTPTool_AllowsConfiguredHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	tool := NewHTTPTool([]string{"127.0.0.1"})
	result := tool.Execute(context.Background(), map[string]interface{}{"url": server.URL})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
}

func TestHTTPTool_SuffixMatchesAllowedHost(t *testing.T) {
	tool := NewHTTPTool([]string{"example.com"})
	if !tool.hostAllowed("api.example.com") {
		t.Fatal("expected subdomain to be allowed via suffix match")
	}
	if tool.hostAllowed("notexample.com") {
		t.Fatal("expected non-dot-separated suffix to be rejected")
	}
}
