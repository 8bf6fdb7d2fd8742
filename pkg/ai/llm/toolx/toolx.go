package toolx

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/parleyhq/parley/pkg/ai/llm"
)

// Toolx is one callable tool. GetTool advertises the schema the model
// sees; Call receives the raw JSON arguments the model produced and
// returns any serializable value.
type Toolx interface {
	Name() string
	GetTool() llm.Tool
	Call(ctx context.Context, input string) (any, error)
}

// ToolxClient is a registry of tools keyed by name. It resolves a model's
// call request to an implementation and serializes the result back into a
// function-result message.
type ToolxClient struct {
	mu    sync.RWMutex
	tools map[string]Toolx
	order []string
}

// FromToolx builds a client from a list of tools
func FromToolx(tools ...Toolx) *ToolxClient {
	c := &ToolxClient{
		tools: make(map[string]Toolx),
	}
	for _, t := range tools {
		c.Register(t)
	}
	return c
}

// Register adds a tool, replacing any previous tool of the same name
func (c *ToolxClient) Register(t Toolx) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := t.Name()
	if _, exists := c.tools[name]; !exists {
		c.order = append(c.order, name)
	}
	c.tools[name] = t
}

// GetTools returns the advertised schemas in registration order. The
// schemas are passed through to the generation capability unmodified.
func (c *ToolxClient) GetTools() []llm.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]llm.Tool, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name].GetTool())
	}
	return out
}

// Call executes the requested tool and returns a function-result message
// carrying the serialized return value and the originating call id.
func (c *ToolxClient) Call(ctx context.Context, tc llm.ToolCall) (llm.Message, error) {
	msg, err := c.call(ctx, tc.Function.Name, tc.Function.Arguments)
	if err != nil {
		return llm.Message{}, err
	}
	msg.ToolCallID = tc.ID
	return msg, nil
}

// CallFunction executes the named tool with raw JSON arguments
func (c *ToolxClient) CallFunction(ctx context.Context, name, arguments string) (llm.Message, error) {
	return c.call(ctx, name, arguments)
}

func (c *ToolxClient) call(ctx context.Context, name, arguments string) (llm.Message, error) {
	c.mu.RLock()
	tool, ok := c.tools[name]
	c.mu.RUnlock()

	if !ok {
		return llm.Message{}, errorRegistry.New(ErrUnknownTool).
			WithDetail("tool", name)
	}

	result, err := tool.Call(ctx, arguments)
	if err != nil {
		return llm.Message{}, errorRegistry.NewWithCause(ErrExecutionFailed, err).
			WithDetail("tool", name)
	}

	content, err := Serialize(result)
	if err != nil {
		return llm.Message{}, errorRegistry.NewWithCause(ErrEncodeResult, err).
			WithDetail("tool", name)
	}

	return llm.NewFunctionMessage(name, content), nil
}

// Serialize renders a tool return value as message content. Strings pass
// through untouched; everything else becomes JSON.
func Serialize(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
