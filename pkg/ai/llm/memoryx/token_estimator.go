package memoryx

import (
	"encoding/json"

	"github.com/parleyhq/parley/pkg/ai/llm"
)

// TokenLen measures the token length of a piece of text. Implementations
// are model-family specific (tiktoken, sentencepiece, ...) and must be
// deterministic for a given input.
type TokenLen func(text string) int

// HeuristicTokenLen is the default tokenizer stand-in: 1 token ≈ 4 bytes,
// rounded up. Good enough to drive eviction thresholds, not billing.
func HeuristicTokenLen(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// CostEstimator estimates the total token cost of an ordered history.
// Estimation is a pure function of its input.
type CostEstimator interface {
	EstimateConversation(messages []llm.Message) (int, error)
}

// ChatMLEstimator estimates conversation cost the way ChatML-style APIs
// account for it: a fixed framing overhead per message, the tokenized
// length of every textual attribute, a discount when a name is present
// (the name replaces the implicit role token), and a final priming
// overhead for the assistant turn being invited.
//
// The constants are empirical approximations tied to one tokenization
// scheme. They are fields, not magic numbers; exact accounting is not
// guaranteed, only a monotonic approximation for eviction purposes.
type ChatMLEstimator struct {
	// TokensPerMessage is the framing overhead added per message.
	// Defaults to 4 if zero.
	TokensPerMessage int

	// ReplyPrimingTokens is added once per conversation for the reply
	// being primed. Defaults to 2 if zero.
	ReplyPrimingTokens int

	// NameDiscount is subtracted when a message carries a name.
	// Defaults to 1 if zero.
	NameDiscount int

	// TokenLen measures text length in tokens. Defaults to
	// HeuristicTokenLen if nil.
	TokenLen TokenLen
}

func (e *ChatMLEstimator) perMessage() int {
	if e.TokensPerMessage == 0 {
		return 4
	}
	return e.TokensPerMessage
}

func (e *ChatMLEstimator) replyPriming() int {
	if e.ReplyPrimingTokens == 0 {
		return 2
	}
	return e.ReplyPrimingTokens
}

func (e *ChatMLEstimator) nameDiscount() int {
	if e.NameDiscount == 0 {
		return 1
	}
	return e.NameDiscount
}

func (e *ChatMLEstimator) tokenLen(text string) int {
	if e.TokenLen == nil {
		return HeuristicTokenLen(text)
	}
	return e.TokenLen(text)
}

// EstimateConversation returns the estimated cost of the full history.
// It fails with a MALFORMED_MESSAGE error when a message carries neither
// content nor a function call; there is no silent default.
func (e *ChatMLEstimator) EstimateConversation(messages []llm.Message) (int, error) {
	total := 0

	for i, m := range messages {
		if m.Content == "" && !m.IsToolCall() {
			return 0, errorRegistry.New(ErrMalformedMessage).
				WithDetail("message_index", i).
				WithDetail("role", m.Role)
		}

		total += e.perMessage()
		total += e.tokenLen(m.Content)

		if m.Name != "" {
			total += e.tokenLen(m.Name)
			total -= e.nameDiscount()
		}

		if m.FunctionCall != nil {
			total += e.tokenLen(serializeCall(*m.FunctionCall))
		}
		for _, tc := range m.ToolCalls {
			total += e.tokenLen(serializeCall(tc.Function))
		}
	}

	total += e.replyPriming()
	if total < 0 {
		total = 0
	}
	return total, nil
}

// serializeCall renders a function call the way it travels on the wire,
// so its cost is counted like any other textual attribute.
func serializeCall(fc llm.FunctionCall) string {
	data, err := json.Marshal(fc)
	if err != nil {
		return fc.Name + fc.Arguments
	}
	return string(data)
}
