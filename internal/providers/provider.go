package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is the interface for chat/completion requests, including vision
// requests carrying page images.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string   `json:"role"` // "system", "user", "assistant"
	Content string   `json:"content"`
	Images  [][]byte `json:"-"` // For vision models (base64 encoded in request)
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_object" or "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     time.Duration

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // Parsed if ResponseFormat was set

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Cost and timing
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`
	TotalTime     time.Duration `json:"total_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
