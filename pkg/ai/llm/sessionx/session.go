package sessionx

import (
	"context"
	"sync"

	"github.com/parleyhq/parley/pkg/ai/llm"
	"github.com/parleyhq/parley/pkg/ai/llm/memoryx"
	"github.com/parleyhq/parley/pkg/ai/llm/toolx"
	"github.com/parleyhq/parley/pkg/logx"
)

// TurnKind discriminates the outcome of one generation request
type TurnKind string

const (
	// TurnReply is a final assistant reply
	TurnReply TurnKind = "reply"

	// TurnToolCall is an assistant request to invoke a tool
	TurnToolCall TurnKind = "tool_call"
)

// TurnResult is the discriminated outcome of RequestTurn. Exactly one of
// Text (for TurnReply) or Call (for TurnToolCall) is meaningful.
type TurnResult struct {
	Kind   TurnKind          `json:"kind"`
	Text   string            `json:"text,omitempty"`
	CallID string            `json:"call_id,omitempty"`
	Call   *llm.FunctionCall `json:"call,omitempty"`
	Usage  llm.Usage         `json:"usage"`
}

// Session owns one conversation: a budgeted history, the generation
// capability, and the per-turn state machine. Operations on one session
// are strictly sequential; independent sessions share nothing and may run
// concurrently.
type Session struct {
	mu      sync.Mutex
	client  *llm.Client
	history *memoryx.TokenWindowMemory
	options []llm.Option
	tools   *toolx.ToolxClient

	maxToolRounds int
	sentinel      string

	// pending is the tool call awaiting its function result. While set,
	// no user input and no new turn are accepted.
	pending *llm.ToolCall
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithOptions adds generation options applied to every turn
func WithOptions(options ...llm.Option) SessionOption {
	return func(s *Session) {
		s.options = append(s.options, options...)
	}
}

// WithTools attaches a tool registry; its schemas are advertised on every turn
func WithTools(tools *toolx.ToolxClient) SessionOption {
	return func(s *Session) {
		s.tools = tools
	}
}

// WithMaxToolRounds caps tool round-trips inside one Respond call.
// Defaults to 5.
func WithMaxToolRounds(max int) SessionOption {
	return func(s *Session) {
		s.maxToolRounds = max
	}
}

// WithTerminationSentinel sets the input value that ends Loop.
// Defaults to "exit".
func WithTerminationSentinel(sentinel string) SessionOption {
	return func(s *Session) {
		s.sentinel = sentinel
	}
}

// New creates a session around a generation client and a budgeted history
func New(client *llm.Client, history *memoryx.TokenWindowMemory, opts ...SessionOption) *Session {
	s := &Session{
		client:        client,
		history:       history,
		maxToolRounds: 5,
		sentinel:      "exit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns a copy of the conversation in order
func (s *Session) History() ([]llm.Message, error) {
	return s.history.Messages()
}

// PendingCall returns the tool call awaiting a result, or nil
func (s *Session) PendingCall() *llm.ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	call := *s.pending
	return &call
}

// AppendUser appends a user message. It is rejected while a tool call is
// pending: the result must come back before new input is accepted. No
// budget check happens here; trimming runs inside RequestTurn.
func (s *Session) AppendUser(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return errorRegistry.New(ErrPendingToolCall).
			WithDetail("tool", s.pending.Function.Name)
	}
	return s.history.Add(llm.NewUserMessage(text))
}

// AppendAssistant appends a plain assistant reply
func (s *Session) AppendAssistant(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Add(llm.NewAssistantMessage(text))
}

// AppendAssistantCall appends an assistant message carrying a function
// call descriptor and marks the call as pending.
func (s *Session) AppendAssistantCall(name, arguments string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return errorRegistry.New(ErrPendingToolCall).
			WithDetail("tool", s.pending.Function.Name)
	}

	msg := llm.NewAssistantCallMessage(name, arguments)
	if err := s.history.Add(msg); err != nil {
		return err
	}
	s.pending = &llm.ToolCall{
		Type:     "function",
		Function: *msg.FunctionCall,
	}
	return nil
}

// AppendFunctionResult appends the function-result message answering the
// pending tool call and clears the pending state. The name must match the
// call that was issued. The payload is serialized to JSON unless it is
// already text.
func (s *Session) AppendFunctionResult(name string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return errorRegistry.New(ErrNoPendingToolCall).
			WithDetail("tool", name)
	}
	if s.pending.Function.Name != name {
		return errorRegistry.New(ErrResultMismatch).
			WithDetail("expected", s.pending.Function.Name).
			WithDetail("got", name)
	}

	content, err := toolx.Serialize(payload)
	if err != nil {
		return err
	}

	msg := llm.NewFunctionMessage(name, content)
	msg.ToolCallID = s.pending.ID
	if err := s.history.Add(msg); err != nil {
		return err
	}
	s.pending = nil
	return nil
}

// RequestTurn trims the history to the budget and asks the generation
// capability for the next assistant turn. On a plain reply the reply is
// appended and returned; on a tool call the call message is appended,
// marked pending, and returned for the caller to execute.
//
// On generation failure nothing is appended, so the caller may retry
// without duplicating entries. A BUDGET_UNSATISFIABLE trim outcome is
// returned before any generation is attempted; it is recoverable — reject
// the input or raise the budget and retry.
func (s *Session) RequestTurn(ctx context.Context) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return TurnResult{}, errorRegistry.New(ErrPendingToolCall).
			WithDetail("tool", s.pending.Function.Name)
	}

	evicted, err := s.history.Trim()
	if err != nil {
		return TurnResult{}, err
	}
	if evicted > 0 {
		logx.WithField("evicted", evicted).Debug("trimmed history before generation")
	}

	messages, err := s.history.Messages()
	if err != nil {
		return TurnResult{}, err
	}

	options := s.options
	if s.tools != nil {
		if toolList := s.tools.GetTools(); len(toolList) > 0 {
			options = append(options, llm.WithTools(toolList))
		}
	}

	response, err := s.client.Chat(ctx, messages, options...)
	if err != nil {
		// History stays as-is; a retry will not duplicate anything.
		return TurnResult{}, err
	}

	assistant := response.Message
	assistant.Role = llm.RoleAssistant

	if assistant.IsToolCall() {
		if err := s.history.Add(assistant); err != nil {
			return TurnResult{}, err
		}

		call := firstCall(assistant)
		s.pending = &call

		return TurnResult{
			Kind:   TurnToolCall,
			CallID: call.ID,
			Call:   &call.Function,
			Usage:  response.Usage,
		}, nil
	}

	if err := s.history.Add(assistant); err != nil {
		return TurnResult{}, err
	}

	return TurnResult{
		Kind:  TurnReply,
		Text:  assistant.Content,
		Usage: response.Usage,
	}, nil
}

// Respond runs one full conversational turn: append the user input,
// request a turn, and resolve any tool round-trips through the session's
// tool registry until a final reply arrives.
func (s *Session) Respond(ctx context.Context, userInput string) (string, error) {
	if err := s.AppendUser(userInput); err != nil {
		return "", err
	}

	for round := 0; ; round++ {
		result, err := s.RequestTurn(ctx)
		if err != nil {
			return "", err
		}

		if result.Kind == TurnReply {
			return result.Text, nil
		}

		if s.tools == nil {
			return "", errorRegistry.New(ErrNoToolClient).
				WithDetail("tool", result.Call.Name)
		}
		if round >= s.maxToolRounds {
			return "", errorRegistry.New(ErrTooManyToolRounds).
				WithDetail("limit", s.maxToolRounds)
		}

		logx.WithFields(logx.Fields{
			"tool": result.Call.Name,
		}).Debug("executing tool call")

		toolMsg, err := s.tools.CallFunction(ctx, result.Call.Name, result.Call.Arguments)
		if err != nil {
			// Feed the failure back as the result so the model can react.
			toolMsg = llm.NewFunctionMessage(result.Call.Name, "error: "+err.Error())
		}

		if err := s.AppendFunctionResult(result.Call.Name, toolMsg.Content); err != nil {
			return "", err
		}
	}
}

func firstCall(msg llm.Message) llm.ToolCall {
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls[0]
	}
	return llm.ToolCall{
		Type:     "function",
		Function: *msg.FunctionCall,
	}
}
