package memoryx

import (
	"sync"

	"github.com/parleyhq/parley/pkg/ai/llm"
	"github.com/parleyhq/parley/pkg/logx"
)

// TokenWindowMemory keeps a conversation under a token budget. The system
// message at index 0 is pinned for the lifetime of the memory; when the
// estimated cost exceeds the budget, the oldest non-system message is
// evicted first, strictly in insertion order. Evicted messages are gone —
// no summary is kept.
type TokenWindowMemory struct {
	mu        sync.Mutex
	messages  []llm.Message
	budget    int
	estimator CostEstimator
	onEvict   func(llm.Message)
}

// WindowOption configures a TokenWindowMemory.
type WindowOption func(*TokenWindowMemory)

// WithEstimator replaces the default ChatML cost estimator.
func WithEstimator(estimator CostEstimator) WindowOption {
	return func(w *TokenWindowMemory) { w.estimator = estimator }
}

// WithOnEvict installs a callback invoked for every evicted message.
func WithOnEvict(fn func(llm.Message)) WindowOption {
	return func(w *TokenWindowMemory) { w.onEvict = fn }
}

// NewTokenWindowMemory creates a budgeted conversation seeded with a system
// message. Pick a budget around 70-80% of the target model's context limit
// so the reply has headroom.
func NewTokenWindowMemory(systemPrompt string, budget int, opts ...WindowOption) *TokenWindowMemory {
	w := &TokenWindowMemory{
		messages:  []llm.Message{llm.NewSystemMessage(systemPrompt)},
		budget:    budget,
		estimator: &ChatMLEstimator{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Messages returns a copy of the conversation in insertion order.
func (w *TokenWindowMemory) Messages() ([]llm.Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]llm.Message, len(w.messages))
	copy(out, w.messages)
	return out, nil
}

// Add appends a message. Malformed messages (no content and no function
// call) are rejected here so estimation never sees one. No budget check
// happens on append; trimming runs right before generation.
func (w *TokenWindowMemory) Add(message llm.Message) error {
	if message.Content == "" && !message.IsToolCall() {
		return errorRegistry.New(ErrMalformedMessage).
			WithDetail("role", message.Role)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, message)
	return nil
}

// Clear drops everything except the pinned system message.
func (w *TokenWindowMemory) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = w.messages[:1]
	return nil
}

// Budget returns the configured cost ceiling.
func (w *TokenWindowMemory) Budget() int {
	return w.budget
}

// Len returns the current number of messages.
func (w *TokenWindowMemory) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

// Cost returns the current estimated cost of the conversation.
func (w *TokenWindowMemory) Cost() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.estimator.EstimateConversation(w.messages)
}

// Trim evicts the oldest non-system message while the estimated cost
// exceeds the budget and more than two messages remain. It returns the
// number of evicted messages.
//
// Trimming never goes below the system message plus the most recent
// entry: dropping the very input awaiting a response would be worse than
// an oversized request. When that floor is hit with the cost still over
// budget, Trim returns a BUDGET_UNSATISFIABLE error and leaves the
// oversized history in place.
func (w *TokenWindowMemory) Trim() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	evicted := 0
	for {
		cost, err := w.estimator.EstimateConversation(w.messages)
		if err != nil {
			return evicted, err
		}
		if cost <= w.budget {
			return evicted, nil
		}
		if len(w.messages) <= 2 {
			return evicted, errorRegistry.New(ErrBudgetUnsatisfiable).
				WithDetail("cost", cost).
				WithDetail("budget", w.budget)
		}

		victim := w.messages[1]
		w.messages = append(w.messages[:1], w.messages[2:]...)
		evicted++

		logx.WithFields(logx.Fields{
			"role":      victim.Role,
			"remaining": len(w.messages),
		}).Debug("evicted oldest message to satisfy token budget")

		if w.onEvict != nil {
			w.onEvict(victim)
		}
	}
}
