package tools

import (
	"context"
	"fmt"
)

// ScriptTool validates that a named script is registered and returns a
// synthetic success result; it performs no real work. Per spec.md §9
// "Open question / possibly-buggy source behavior," the original
// source's script tool reports success unconditionally. This
// implementation rejects unregistered names explicitly: they fail
// validation instead of silently succeeding.
type ScriptTool struct {
	registered map[string]bool
}

// NewScriptTool builds the tool with the given registry of known script
// names.
func NewScriptTool(names []string) *ScriptTool {
	reg := make(map[string]bool, len(names))
	for _, n := range names {
		reg[n] = true
	}
	return &ScriptTool{registered: reg}
}

func (t *ScriptTool) Name() string        { return "script" }
func (t *ScriptTool) Description() string { return "Invoke a named, pre-registered script (extension point; no scripts ship by default)." }

func (t *ScriptTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
			"args": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"name"},
	}
}

func (t *ScriptTool) Execute(_ context.Context, args map[string]interface{}) *ToolResult {
	name, _ := args["name"].(string)
	if !t.registered[name] {
		return validationError(fmt.Sprintf("script %q is not registered", name))
	}
	return ok(fmt.Sprintf("script %q executed", name), map[string]interface{}{"script": name})
}
