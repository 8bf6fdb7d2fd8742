package sessionx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/parleyhq/parley/pkg/ai/llm"
	"github.com/parleyhq/parley/pkg/ai/llm/memoryx"
	"github.com/parleyhq/parley/pkg/ai/llm/sessionx"
	"github.com/parleyhq/parley/pkg/ai/llm/toolx"
)

// mockProvider returns scripted responses in order and records every call.
type mockProvider struct {
	responses []llm.Response
	errs      []error
	calls     [][]llm.Message
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)

	i := len(m.calls) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return llm.Response{}, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return llm.Response{Message: llm.NewAssistantMessage("ok")}, nil
}

func (m *mockProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	return nil, errors.New("streaming not supported in mock")
}

func reply(text string) llm.Response {
	return llm.Response{
		Message: llm.NewAssistantMessage(text),
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func toolCallResponse(id, name, args string) llm.Response {
	return llm.Response{
		Message: llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:   id,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		},
	}
}

func newSession(provider llm.Provider, opts ...sessionx.SessionOption) *sessionx.Session {
	history := memoryx.NewTokenWindowMemory("You are helpful.", 100000)
	return sessionx.New(llm.NewClient(provider), history, opts...)
}

// --- RequestTurn: plain reply ---

func TestRequestTurn_Reply(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{reply("hi there")}}
	s := newSession(mock)

	if err := s.AppendUser("hello"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}

	result, err := s.RequestTurn(context.Background())
	if err != nil {
		t.Fatalf("RequestTurn: %v", err)
	}
	if result.Kind != sessionx.TurnReply {
		t.Fatalf("expected reply, got %s", result.Kind)
	}
	if result.Text != "hi there" {
		t.Fatalf("expected reply text, got %q", result.Text)
	}

	// Round trip: system, user, assistant.
	msgs, _ := s.History()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after turn, got %d", len(msgs))
	}
	if msgs[2].Role != llm.RoleAssistant || msgs[2].Content != "hi there" {
		t.Fatalf("reply not appended: %+v", msgs[2])
	}
}

func TestRequestTurn_PassesHistoryInOrder(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{reply("next")}}
	s := newSession(mock)

	s.AppendUser("first")
	s.AppendAssistant("first reply")
	s.AppendUser("second")

	if _, err := s.RequestTurn(context.Background()); err != nil {
		t.Fatalf("RequestTurn: %v", err)
	}

	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(mock.calls))
	}
	sent := mock.calls[0]
	if len(sent) != 4 {
		t.Fatalf("expected all 4 messages sent, got %d", len(sent))
	}
	want := []string{"You are helpful.", "first", "first reply", "second"}
	for i, w := range want {
		if sent[i].Content != w {
			t.Fatalf("message %d: expected %q, got %q", i, w, sent[i].Content)
		}
	}
}

// --- RequestTurn: tool calls ---

func TestRequestTurn_ToolCall(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{
		toolCallResponse("call_1", "get_weather", `{"city":"Lima"}`),
		reply("It is sunny in Lima."),
	}}
	s := newSession(mock)
	s.AppendUser("weather in Lima?")

	result, err := s.RequestTurn(context.Background())
	if err != nil {
		t.Fatalf("RequestTurn: %v", err)
	}
	if result.Kind != sessionx.TurnToolCall {
		t.Fatalf("expected tool call, got %s", result.Kind)
	}
	if result.Call == nil || result.Call.Name != "get_weather" {
		t.Fatalf("unexpected call: %+v", result.Call)
	}
	if result.CallID != "call_1" {
		t.Fatalf("expected call id preserved, got %q", result.CallID)
	}

	// User input is rejected while the call is pending.
	if err := s.AppendUser("are you there?"); err == nil {
		t.Fatal("expected user input rejected while tool call pending")
	}

	// A new turn is rejected too.
	if _, err := s.RequestTurn(context.Background()); err == nil {
		t.Fatal("expected RequestTurn rejected while tool call pending")
	}

	// A mismatched result name is rejected.
	if err := s.AppendFunctionResult("other_tool", "nope"); err == nil {
		t.Fatal("expected mismatched function result rejected")
	}

	// The matching result clears the pending state.
	if err := s.AppendFunctionResult("get_weather", `{"temp":25}`); err != nil {
		t.Fatalf("AppendFunctionResult: %v", err)
	}
	if s.PendingCall() != nil {
		t.Fatal("pending call not cleared")
	}

	result, err = s.RequestTurn(context.Background())
	if err != nil {
		t.Fatalf("second RequestTurn: %v", err)
	}
	if result.Kind != sessionx.TurnReply || result.Text != "It is sunny in Lima." {
		t.Fatalf("expected final reply, got %+v", result)
	}

	// History carries exactly one function result, answering the call.
	msgs, _ := s.History()
	functionResults := 0
	for _, m := range msgs {
		if m.Role == llm.RoleFunction {
			functionResults++
			if m.Name != "get_weather" {
				t.Fatalf("function result name mismatch: %q", m.Name)
			}
		}
	}
	if functionResults != 1 {
		t.Fatalf("expected exactly 1 function result, got %d", functionResults)
	}
}

func TestAppendFunctionResult_NoPendingCall(t *testing.T) {
	s := newSession(&mockProvider{})
	if err := s.AppendFunctionResult("get_weather", "data"); err == nil {
		t.Fatal("expected error when no tool call is pending")
	}
}

// --- RequestTurn: failure semantics ---

func TestRequestTurn_GenerationFailureLeavesHistoryUnchanged(t *testing.T) {
	mock := &mockProvider{
		errs:      []error{errors.New("upstream unavailable"), nil},
		responses: []llm.Response{{}, reply("recovered")},
	}
	s := newSession(mock)
	s.AppendUser("hello")

	before, _ := s.History()

	if _, err := s.RequestTurn(context.Background()); err == nil {
		t.Fatal("expected generation error")
	}

	after, _ := s.History()
	if len(after) != len(before) {
		t.Fatalf("history changed on failure: %d -> %d", len(before), len(after))
	}

	// A retry works without duplicating the user input.
	result, err := s.RequestTurn(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Text != "recovered" {
		t.Fatalf("unexpected retry result: %+v", result)
	}

	final, _ := s.History()
	userCount := 0
	for _, m := range final {
		if m.Role == llm.RoleUser {
			userCount++
		}
	}
	if userCount != 1 {
		t.Fatalf("user input duplicated on retry: %d copies", userCount)
	}
}

func TestRequestTurn_BudgetErrorBeforeGeneration(t *testing.T) {
	mock := &mockProvider{}
	history := memoryx.NewTokenWindowMemory("hi", 15,
		memoryx.WithEstimator(&memoryx.ChatMLEstimator{TokenLen: func(s string) int { return len(s) }}))
	s := sessionx.New(llm.NewClient(mock), history)

	s.AppendUser("hello")

	_, err := s.RequestTurn(context.Background())
	if err == nil {
		t.Fatal("expected budget error")
	}
	if !memoryx.IsBudgetUnsatisfiable(err) {
		t.Fatalf("expected budget unsatisfiable, got %v", err)
	}
	if len(mock.calls) != 0 {
		t.Fatal("generation must not run when trimming fails")
	}
}

// --- Respond: tool round trips ---

// echoTool returns its raw input, which makes assertions trivial.
type echoTool struct{ name string }

func (t *echoTool) Name() string { return t.name }

func (t *echoTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.Function{
			Name:        t.name,
			Description: "echoes its input",
		},
	}
}

func (t *echoTool) Call(ctx context.Context, input string) (any, error) {
	return "echo: " + input, nil
}

func TestRespond_ResolvesToolRoundTrip(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{
		toolCallResponse("call_1", "echo", `{"v":1}`),
		reply("done"),
	}}
	tools := toolx.FromToolx(&echoTool{name: "echo"})
	s := newSession(mock, sessionx.WithTools(tools))

	out, err := s.Respond(context.Background(), "use the tool")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if out != "done" {
		t.Fatalf("expected final reply, got %q", out)
	}

	msgs, _ := s.History()
	var sawResult bool
	for _, m := range msgs {
		if m.Role == llm.RoleFunction && m.Content == `echo: {"v":1}` {
			sawResult = true
		}
	}
	if !sawResult {
		t.Fatalf("tool result missing from history: %+v", msgs)
	}
}

func TestRespond_ToolCallWithoutToolClient(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{
		toolCallResponse("call_1", "echo", "{}"),
	}}
	s := newSession(mock)

	if _, err := s.Respond(context.Background(), "go"); err == nil {
		t.Fatal("expected error when no tool client is configured")
	}
}

func TestRespond_ToolRoundCap(t *testing.T) {
	// The provider asks for the tool forever; the cap must stop the loop.
	mock := &mockProvider{}
	for i := 0; i < 10; i++ {
		mock.responses = append(mock.responses, toolCallResponse("call", "echo", "{}"))
	}
	tools := toolx.FromToolx(&echoTool{name: "echo"})
	s := newSession(mock, sessionx.WithTools(tools), sessionx.WithMaxToolRounds(2))

	if _, err := s.Respond(context.Background(), "loop"); err == nil {
		t.Fatal("expected tool round cap error")
	}
}

// --- Loop ---

func TestLoop_SentinelEndsSession(t *testing.T) {
	mock := &mockProvider{responses: []llm.Response{reply("hello back")}}
	s := newSession(mock)

	var replies []string
	in := sessionx.NewSliceSource("hello", "exit", "never sent")

	err := s.Loop(context.Background(), in, func(r string) {
		replies = append(replies, r)
	})
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}

	if len(replies) != 1 || replies[0] != "hello back" {
		t.Fatalf("expected one reply before sentinel, got %v", replies)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(mock.calls))
	}
}

func TestLoop_EOFEndsSession(t *testing.T) {
	mock := &mockProvider{}
	s := newSession(mock)

	in := sessionx.NewSliceSource() // immediate EOF
	if err := s.Loop(context.Background(), in, func(string) {}); err != nil {
		t.Fatalf("expected clean end on EOF, got %v", err)
	}
}

func TestLoop_ErrorStopsWithoutRetry(t *testing.T) {
	mock := &mockProvider{errs: []error{errors.New("boom")}}
	s := newSession(mock)

	in := sessionx.NewSliceSource("hello", "more")
	err := s.Loop(context.Background(), in, func(string) {})
	if err == nil {
		t.Fatal("expected loop to surface the error")
	}
	if len(mock.calls) != 1 {
		t.Fatalf("loop must not retry, got %d calls", len(mock.calls))
	}
}
