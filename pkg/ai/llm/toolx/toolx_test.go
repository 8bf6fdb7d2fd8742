package toolx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/parleyhq/parley/pkg/ai/llm"
	"github.com/parleyhq/parley/pkg/ai/llm/toolx"
)

type stubTool struct {
	name   string
	result any
	err    error
	gotIn  string
}

func (t *stubTool) Name() string { return t.name }

func (t *stubTool) GetTool() llm.Tool {
	return llm.Tool{
		Type:     "function",
		Function: llm.Function{Name: t.name},
	}
}

func (t *stubTool) Call(ctx context.Context, input string) (any, error) {
	t.gotIn = input
	return t.result, t.err
}

func TestToolxClient_GetToolsInRegistrationOrder(t *testing.T) {
	c := toolx.FromToolx(
		&stubTool{name: "beta"},
		&stubTool{name: "alpha"},
	)

	tools := c.GetTools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Function.Name != "beta" || tools[1].Function.Name != "alpha" {
		t.Fatalf("registration order not preserved: %+v", tools)
	}
}

func TestToolxClient_CallFunction(t *testing.T) {
	tool := &stubTool{name: "lookup", result: map[string]int{"n": 42}}
	c := toolx.FromToolx(tool)

	msg, err := c.CallFunction(context.Background(), "lookup", `{"q":"x"}`)
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if tool.gotIn != `{"q":"x"}` {
		t.Fatalf("arguments not passed through: %q", tool.gotIn)
	}
	if msg.Role != llm.RoleFunction || msg.Name != "lookup" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Content != `{"n":42}` {
		t.Fatalf("result not serialized as JSON: %q", msg.Content)
	}
}

func TestToolxClient_CallSetsToolCallID(t *testing.T) {
	c := toolx.FromToolx(&stubTool{name: "lookup", result: "ok"})

	msg, err := c.Call(context.Background(), llm.ToolCall{
		ID:       "call_abc",
		Type:     "function",
		Function: llm.FunctionCall{Name: "lookup", Arguments: "{}"},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if msg.ToolCallID != "call_abc" {
		t.Fatalf("expected call id carried over, got %q", msg.ToolCallID)
	}
}

func TestToolxClient_UnknownTool(t *testing.T) {
	c := toolx.FromToolx()

	if _, err := c.CallFunction(context.Background(), "missing", "{}"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestToolxClient_ExecutionError(t *testing.T) {
	c := toolx.FromToolx(&stubTool{name: "flaky", err: errors.New("boom")})

	if _, err := c.CallFunction(context.Background(), "flaky", "{}"); err == nil {
		t.Fatal("expected execution error surfaced")
	}
}

func TestSerialize(t *testing.T) {
	if s, _ := toolx.Serialize("plain"); s != "plain" {
		t.Fatalf("strings must pass through, got %q", s)
	}
	if s, _ := toolx.Serialize([]byte("raw")); s != "raw" {
		t.Fatalf("byte slices must pass through, got %q", s)
	}
	if s, _ := toolx.Serialize(map[string]string{"k": "v"}); s != `{"k":"v"}` {
		t.Fatalf("values must serialize to JSON, got %q", s)
	}
}
