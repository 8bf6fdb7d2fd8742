package llm

import "context"

// Provider is the generation capability consumed by the session core.
// Implementations live under pkg/ai/providers and translate the neutral
// message model to one vendor's wire format.
type Provider interface {
	// Chat sends the ordered history and blocks until the model replies
	// or the call fails. On failure no message is produced.
	Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error)

	// ChatStream opens a streaming generation. The returned Stream yields
	// incremental assistant messages until io.EOF.
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error)
}

// Response is the result of one generation call
type Response struct {
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
}

// Stream yields incremental assistant messages. Next returns io.EOF when
// the stream is exhausted.
type Stream interface {
	Next() (Message, error)
	Close() error
}

// Client wraps a Provider with call-site defaults
type Client struct {
	provider Provider
	defaults []Option
}

// NewClient creates a client around a provider. Options passed here apply
// to every call and may be overridden per call.
func NewClient(provider Provider, defaults ...Option) *Client {
	return &Client{
		provider: provider,
		defaults: defaults,
	}
}

// Chat invokes the provider with defaults prepended
func (c *Client) Chat(ctx context.Context, messages []Message, opts ...Option) (Response, error) {
	return c.provider.Chat(ctx, messages, c.merge(opts)...)
}

// ChatStream invokes the provider's streaming API with defaults prepended
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error) {
	return c.provider.ChatStream(ctx, messages, c.merge(opts)...)
}

func (c *Client) merge(opts []Option) []Option {
	if len(c.defaults) == 0 {
		return opts
	}
	merged := make([]Option, 0, len(c.defaults)+len(opts))
	merged = append(merged, c.defaults...)
	merged = append(merged, opts...)
	return merged
}
