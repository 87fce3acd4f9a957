package providers

import (
	"context"
	"sync"
)

// Usage is the accumulated spend across tracked LLM calls.
type Usage struct {
	Calls            int     `json:"calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Tracking wraps an LLMClient and accumulates token and cost usage. Safe for
// concurrent use.
type Tracking struct {
	inner LLMClient

	mu    sync.Mutex
	usage Usage
}

// NewTracking wraps inner with usage accounting.
func NewTracking(inner LLMClient) *Tracking {
	return &Tracking{inner: inner}
}

// Name implements LLMClient.
func (t *Tracking) Name() string { return t.inner.Name() }

// Chat delegates to the wrapped client and records usage on success.
func (t *Tracking) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	result, err := t.inner.Chat(ctx, req)

	t.mu.Lock()
	t.usage.Calls++
	if result != nil {
		t.usage.PromptTokens += result.PromptTokens
		t.usage.CompletionTokens += result.CompletionTokens
		t.usage.CostUSD += result.CostUSD
	}
	t.mu.Unlock()

	return result, err
}

// Usage returns a snapshot of accumulated usage.
func (t *Tracking) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
