package llm

// ChatOptions holds sampling and tool configuration for one generation call.
// Unknown-to-a-provider fields are passed through or ignored; the core never
// reinterprets them.
type ChatOptions struct {
	Model               string
	Temperature         float32
	TopP                float32
	MaxTokens           int
	MaxCompletionTokens int
	Stop                []string
	PresencePenalty     float32
	FrequencyPenalty    float32
	Seed                int64
	User                string

	// JSONMode is a shortcut for ResponseFormat JSONObject
	JSONMode       bool
	ResponseFormat *ResponseFormat

	// Tools and Functions advertise callable schemas to the model
	Tools     []Tool
	Functions []Function

	// ToolChoice is "auto", "none", "required", or a provider-specific value
	ToolChoice any
}

// Option configures ChatOptions
type Option func(*ChatOptions)

// DefaultOptions returns the baseline chat options
func DefaultOptions() *ChatOptions {
	return &ChatOptions{
		Temperature: 0.7,
	}
}

// WithModel sets the model or deployment identifier
func WithModel(model string) Option {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float32) Option {
	return func(o *ChatOptions) {
		o.Temperature = temperature
	}
}

// WithTopP sets the nucleus sampling parameter
func WithTopP(topP float32) Option {
	return func(o *ChatOptions) {
		o.TopP = topP
	}
}

// WithMaxTokens limits the generated output length
func WithMaxTokens(maxTokens int) Option {
	return func(o *ChatOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithMaxCompletionTokens limits output length on reasoning-style models
func WithMaxCompletionTokens(maxTokens int) Option {
	return func(o *ChatOptions) {
		o.MaxCompletionTokens = maxTokens
	}
}

// WithStop sets stop sequences
func WithStop(stop ...string) Option {
	return func(o *ChatOptions) {
		o.Stop = stop
	}
}

// WithPresencePenalty sets the presence penalty
func WithPresencePenalty(penalty float32) Option {
	return func(o *ChatOptions) {
		o.PresencePenalty = penalty
	}
}

// WithFrequencyPenalty sets the frequency penalty
func WithFrequencyPenalty(penalty float32) Option {
	return func(o *ChatOptions) {
		o.FrequencyPenalty = penalty
	}
}

// WithSeed sets a sampling seed for providers that support it
func WithSeed(seed int64) Option {
	return func(o *ChatOptions) {
		o.Seed = seed
	}
}

// WithUser tags the request with an end-user identifier
func WithUser(user string) Option {
	return func(o *ChatOptions) {
		o.User = user
	}
}

// WithTools advertises tool schemas to the model
func WithTools(tools []Tool) Option {
	return func(o *ChatOptions) {
		o.Tools = tools
	}
}

// WithFunctions advertises legacy function schemas to the model
func WithFunctions(functions []Function) Option {
	return func(o *ChatOptions) {
		o.Functions = functions
	}
}

// WithToolChoice sets the tool choice mode
func WithToolChoice(choice any) Option {
	return func(o *ChatOptions) {
		o.ToolChoice = choice
	}
}

// WithResponseFormat specifies the output format
func WithResponseFormat(format *ResponseFormat) Option {
	return func(o *ChatOptions) {
		o.ResponseFormat = format
	}
}

// WithJSONResponseFormat sets the response format to JSON object
func WithJSONResponseFormat() Option {
	return func(o *ChatOptions) {
		o.JSONMode = true
	}
}

// WithJSONSchemaResponseFormat sets the response format to conform to a specific JSON schema
func WithJSONSchemaResponseFormat(schema any) Option {
	return func(o *ChatOptions) {
		o.ResponseFormat = &ResponseFormat{
			Type:       JSONSchema,
			JSONSchema: schema,
		}
	}
}
