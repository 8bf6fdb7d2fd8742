package aiopenai

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"

	"github.com/parleyhq/parley/pkg/ai/llm"
)

// OpenAIProvider implements the llm.Provider interface for OpenAI
type OpenAIProvider struct {
	client openai.Client
	apiKey string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)

	return &OpenAIProvider{
		client: client,
		apiKey: apiKey,
	}
}

func defaultChatOptions() *llm.ChatOptions {
	options := llm.DefaultOptions()
	options.Model = "gpt-4o"
	return options
}

// ============================================================================
// Chat Implementation
// ============================================================================

// Chat implements the llm.Provider interface
func (p *OpenAIProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	params, err := p.buildParams(messages, opts)
	if err != nil {
		return llm.Response{}, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return llm.Response{}, ParseOpenAIError(err).
			WithDetail("model", params.Model).
			WithDetail("num_messages", len(messages))
	}

	return convertFromOpenAIResponse(completion)
}

// ============================================================================
// Chat Stream Implementation
// ============================================================================

// ChatStream implements streaming for the Chat Completions API
func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	params, err := p.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	sseStream := p.client.Chat.Completions.NewStreaming(ctx, *params)

	return &openAIStream{
		stream: sseStream,
	}, nil
}

// buildParams validates input and translates the neutral options and
// messages to Chat Completions parameters.
func (p *OpenAIProvider) buildParams(messages []llm.Message, opts []llm.Option) (*openai.ChatCompletionNewParams, error) {
	if p.apiKey == "" {
		return nil, errorRegistry.New(ErrMissingAPIKey)
	}
	if len(messages) == 0 {
		return nil, errorRegistry.New(ErrEmptyMessages)
	}

	options := defaultChatOptions()
	for _, opt := range opts {
		opt(options)
	}

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i, msg := range messages {
		openAIMsg, err := convertToOpenAIMessage(msg)
		if err != nil {
			return nil, WrapError(err, ErrInvalidRequest).
				WithDetail("message_index", i).
				WithDetail("role", msg.Role)
		}
		openAIMessages = append(openAIMessages, openAIMsg)
	}

	params := &openai.ChatCompletionNewParams{
		Messages: openAIMessages,
		Model:    options.Model,
	}

	if options.Temperature != 0 {
		params.Temperature = openai.Float(float64(options.Temperature))
	}
	if options.TopP != 0 {
		params.TopP = openai.Float(float64(options.TopP))
	}
	if options.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxCompletionTokens))
	} else if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(float64(options.PresencePenalty))
	}
	if options.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(float64(options.FrequencyPenalty))
	}
	if len(options.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: options.Stop,
		}
	}
	if options.Seed != 0 {
		params.Seed = openai.Int(options.Seed)
	}
	if options.User != "" {
		params.User = openai.String(options.User)
	}

	if len(options.Tools) > 0 || len(options.Functions) > 0 {
		tools, err := convertToOpenAITools(options.Tools, options.Functions)
		if err != nil {
			return nil, err
		}
		if len(tools) > 0 {
			params.Tools = tools
		}
	}

	if options.ToolChoice != nil {
		params.ToolChoice = convertToOpenAIToolChoice(options.ToolChoice)
	}

	if options.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	} else if options.ResponseFormat != nil {
		format, err := convertToResponseFormatParam(options.ResponseFormat)
		if err != nil {
			return nil, err
		}
		params.ResponseFormat = format
	}

	return params, nil
}

// ============================================================================
// Stream Implementation
// ============================================================================

type openAIStream struct {
	stream interface {
		Next() bool
		Current() openai.ChatCompletionChunk
		Err() error
	}
	lastError error
	current   llm.Message
}

func (s *openAIStream) Next() (llm.Message, error) {
	if s.lastError != nil {
		return llm.Message{}, s.lastError
	}

	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			s.lastError = ParseOpenAIError(err)
			return llm.Message{}, s.lastError
		}
		s.lastError = io.EOF
		return llm.Message{}, io.EOF
	}

	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return llm.Message{Role: llm.RoleAssistant}, nil
	}

	delta := chunk.Choices[0].Delta

	// Tool call deltas accumulate by index. OpenAI only sends the ID on
	// the first delta for each call; argument chunks after that carry an
	// empty ID but the correct Index.
	for _, tc := range delta.ToolCalls {
		idx := int(tc.Index)

		for len(s.current.ToolCalls) <= idx {
			s.current.ToolCalls = append(s.current.ToolCalls, llm.ToolCall{Type: "function"})
		}

		if tc.ID != "" {
			s.current.ToolCalls[idx].ID = tc.ID
		}
		if tc.Function.Name != "" {
			s.current.ToolCalls[idx].Function.Name += tc.Function.Name
		}
		s.current.ToolCalls[idx].Function.Arguments += tc.Function.Arguments
	}

	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   delta.Content,       // delta only
		ToolCalls: s.current.ToolCalls, // full accumulated snapshot
	}, nil
}

func (s *openAIStream) Close() error {
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func convertToOpenAIMessage(msg llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(msg.Content), nil

	case llm.RoleUser:
		return openai.UserMessage(msg.Content), nil

	case llm.RoleAssistant:
		toolCalls := assistantToolCalls(msg)
		if len(toolCalls) == 0 {
			return openai.AssistantMessage(msg.Content), nil
		}

		converted := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(toolCalls))
		for _, tc := range toolCalls {
			converted = append(converted, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID:   tc.ID,
					Type: constant.Function("function"),
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				},
			})
		}

		return openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role: constant.Assistant("assistant"),
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				},
				ToolCalls: converted,
			},
		}, nil

	case llm.RoleFunction:
		id := msg.ToolCallID
		if id == "" {
			id = msg.Name
		}
		return openai.ToolMessage(msg.Content, id), nil

	default:
		return openai.ChatCompletionMessageParamUnion{},
			errorRegistry.New(ErrUnsupportedRole).
				WithDetail("role", msg.Role)
	}
}

// assistantToolCalls normalizes the two call representations to one list
func assistantToolCalls(msg llm.Message) []llm.ToolCall {
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls
	}
	if msg.FunctionCall != nil {
		return []llm.ToolCall{{
			ID:       "call_" + msg.FunctionCall.Name,
			Type:     "function",
			Function: *msg.FunctionCall,
		}}
	}
	return nil
}

func convertToOpenAITools(tools []llm.Tool, functions []llm.Function) ([]openai.ChatCompletionToolUnionParam, error) {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(tools)+len(functions))

	appendFn := func(fn llm.Function) error {
		paramsJSON, err := json.Marshal(fn.Parameters)
		if err != nil {
			return WrapError(err, ErrJSONParsing).WithDetail("tool", fn.Name)
		}

		var parametersMap map[string]any
		if err := json.Unmarshal(paramsJSON, &parametersMap); err != nil {
			return WrapError(err, ErrJSONParsing).WithDetail("tool", fn.Name)
		}

		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fn.Name,
			Description: openai.String(fn.Description),
			Parameters:  openai.FunctionParameters(parametersMap),
		}))
		return nil
	}

	for _, tool := range tools {
		if tool.Type != "function" {
			continue
		}
		if err := appendFn(tool.Function); err != nil {
			return nil, err
		}
	}
	for _, fn := range functions {
		if err := appendFn(fn); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func convertToOpenAIToolChoice(toolChoice any) openai.ChatCompletionToolChoiceOptionUnionParam {
	if strChoice, ok := toolChoice.(string); ok {
		switch strChoice {
		case "auto", "none", "required":
			return openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(strChoice),
			}
		}
	}

	return openai.ChatCompletionToolChoiceOptionUnionParam{
		OfAuto: openai.String("auto"),
	}
}

func convertToResponseFormatParam(format *llm.ResponseFormat) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	switch format.Type {
	case llm.JSONObject:
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}, nil

	case llm.JSONSchema:
		schema, ok := format.JSONSchema.(map[string]any)
		if !ok {
			schemaBytes, err := json.Marshal(format.JSONSchema)
			if err != nil {
				return openai.ChatCompletionNewParamsResponseFormatUnion{},
					WrapError(err, ErrJSONParsing)
			}

			var schemaMap map[string]any
			if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
				return openai.ChatCompletionNewParamsResponseFormatUnion{},
					WrapError(err, ErrJSONParsing)
			}
			schema = schemaMap
		}

		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "schema",
					Schema: schema,
				},
			},
		}, nil

	default:
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfText: &shared.ResponseFormatTextParam{},
		}, nil
	}
}

func convertFromOpenAIResponse(completion *openai.ChatCompletion) (llm.Response, error) {
	if len(completion.Choices) == 0 {
		return llm.Response{}, errorRegistry.New(ErrNoChoicesInResponse)
	}

	choice := completion.Choices[0]

	message := llm.Message{
		Role:    string(choice.Message.Role),
		Content: choice.Message.Content,
	}

	if len(choice.Message.ToolCalls) > 0 {
		toolCalls := make([]llm.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		message.ToolCalls = toolCalls
	}

	return llm.Response{
		Message: message,
		Usage: llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}
