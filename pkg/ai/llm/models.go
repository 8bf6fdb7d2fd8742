package llm

// Role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Message represents a chat message. Exactly one growth path exists for a
// conversation: messages are appended in order and never mutated in place.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	// Name identifies the function that produced a function-result message.
	Name string `json:"name,omitempty"`

	// ToolCallID carries the provider-assigned call id a function-result
	// message answers. Some backends (Anthropic, OpenAI tools API) require
	// it to pair results with requests.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// FunctionCall is set on an assistant message that requests a tool
	// invocation instead of producing a final reply.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`

	// ToolCalls is the multi-call variant some providers emit. The first
	// entry is equivalent to FunctionCall for single-call conversations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsToolCall reports whether the message requests a tool invocation
// rather than carrying a final reply.
func (m Message) IsToolCall() bool {
	return m.FunctionCall != nil || len(m.ToolCalls) > 0
}

// Call returns the requested function call, preferring the legacy
// single-call field over the tool-calls list.
func (m Message) Call() *FunctionCall {
	if m.FunctionCall != nil {
		return m.FunctionCall
	}
	if len(m.ToolCalls) > 0 {
		fc := m.ToolCalls[0].Function
		return &fc
	}
	return nil
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FunctionCall represents a function call in a message
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Function describes a callable function
type Function struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"` // JSON Schema object
}

// ToolCall represents a tool call
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Tool represents a callable tool
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// NewSystemMessage creates a new system message
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// NewAssistantCallMessage creates an assistant message carrying a function
// call request; content stays empty.
func NewAssistantCallMessage(name, arguments string) Message {
	return Message{
		Role:         RoleAssistant,
		FunctionCall: &FunctionCall{Name: name, Arguments: arguments},
	}
}

// NewFunctionMessage creates a new function-result message
func NewFunctionMessage(name string, content string) Message {
	return Message{
		Role:    RoleFunction,
		Name:    name,
		Content: content,
	}
}

// ResponseFormatType represents the format type for model outputs
type ResponseFormatType string

const (
	// JSONObject requests output in JSON object format
	JSONObject ResponseFormatType = "json_object"
	// TextFormat requests output in plain text (default)
	TextFormat ResponseFormatType = "text"
	// JSONSchema requests output conforming to a specific JSON schema
	JSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat specifies the desired output format
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	JSONSchema any                `json:"schema,omitempty"`
}
