package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// Responses, when non-empty, is consumed one entry per request before
	// falling back to ResponseText. Lets tests script multi-call flows.
	Responses []string

	// Handler, when set, overrides all canned behavior.
	Handler func(req *ChatRequest) (string, error)

	// State
	mu           sync.Mutex
	requestCount atomic.Int64
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestCount returns the number of requests received.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// Requests returns a copy of all received requests, in order.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail || (c.FailAfter > 0 && int(count) > c.FailAfter) {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}

	// Simulate latency, respecting cancellation
	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	content := c.ResponseText
	if c.Handler != nil {
		var err error
		content, err = c.Handler(req)
		if err != nil {
			result.Success = false
			result.ErrorType = "mock_failure"
			result.ErrorMessage = err.Error()
			result.TotalTime = time.Since(start)
			return result, err
		}
	} else {
		c.mu.Lock()
		if len(c.Responses) > 0 {
			content = c.Responses[0]
			c.Responses = c.Responses[1:]
		}
		c.mu.Unlock()
		if len(c.ResponseJSON) > 0 {
			content = string(c.ResponseJSON)
		}
	}

	result.Success = true
	result.Content = content
	result.PromptTokens = 10
	result.CompletionTokens = 20
	result.TotalTokens = 30
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if req.ResponseFormat != nil && content != "" {
		var parsed json.RawMessage
		if err := json.Unmarshal([]byte(content), &parsed); err == nil {
			result.ParsedJSON = parsed
		}
	}

	return result, nil
}
