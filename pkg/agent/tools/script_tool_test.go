package tools

import (
	"context"
	"testing"
)

func TestScriptTool_RejectsUnregistered(t *testing.T) {
	tool := NewScriptTool(nil)
	result := tool.Execute(context.Background(), map[string]interface{}{"name": "restart-pod"})
	if result.Success {
		t.Fatal("expected unregistered script to be rejected")
	}
}

func TestScriptTool_SucceedsForRegistered(t *testing.T) {
	tool := NewScriptTool([]string{"restart-pod"})
	result := tool.Execute(context.Background(), map[string]interface{}{"name": "restart-pod"})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
}
