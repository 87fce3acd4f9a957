package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"context"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting
	RPM        int           // Requests per minute (default: 60)
	MaxRetries int           // Max retry attempts (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic/claude-3.5-sonnet"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RPM == 0 {
		cfg.RPM = 60
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    NewRateLimiter(cfg.RPM),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageRequest{Include: true},
	}

	// Convert messages, expanding vision messages into multipart content
	for _, m := range req.Messages {
		orMsg := openRouterMessage{
			Role: m.Role,
		}

		if len(m.Images) > 0 {
			content := []openRouterContent{
				{Type: "text", Text: m.Content},
			}
			for _, img := range m.Images {
				content = append(content, openRouterContent{
					Type: "image_url",
					ImageURL: &openRouterImageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
					},
				})
			}
			orMsg.Content = content
		} else {
			orMsg.Content = m.Content
		}

		orReq.Messages = append(orReq.Messages, orMsg)
	}

	if req.ResponseFormat != nil {
		orReq.ResponseFormat = &openRouterResponseFormat{
			Type:       req.ResponseFormat.Type,
			JSONSchema: req.ResponseFormat.JSONSchema,
		}
	}

	orResp, httpErr := c.doRequest(ctx, "/chat/completions", &orReq)

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
		Attempts:  1,
	}

	if httpErr != nil {
		result.Success = false
		result.ErrorType = "http_error"
		result.ErrorMessage = httpErr.Error()
		result.TotalTime = time.Since(start)
		return result, httpErr
	}

	if len(orResp.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	// Extract content
	content := ""
	if orResp.Choices[0].Message.Content != nil {
		switch v := orResp.Choices[0].Message.Content.(type) {
		case string:
			content = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				result.Success = false
				result.ErrorType = "content_marshal_error"
				result.ErrorMessage = fmt.Sprintf("failed to marshal content: %v", err)
				result.TotalTime = time.Since(start)
				return result, fmt.Errorf("failed to marshal content: %w", err)
			}
			content = string(b)
		}
	}

	result.Success = true
	result.Content = content
	result.ModelUsed = orResp.Model
	result.PromptTokens = orResp.Usage.PromptTokens
	result.CompletionTokens = orResp.Usage.CompletionTokens
	result.TotalTokens = orResp.Usage.TotalTokens
	result.CostUSD = orResp.Usage.Cost
	if result.CostUSD == 0 {
		result.CostUSD = orResp.Usage.NativeTotalCost
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	// Parse JSON if structured output was requested
	if req.ResponseFormat != nil && content != "" {
		var parsed json.RawMessage
		if err := json.Unmarshal([]byte(content), &parsed); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", err)
		}
	}

	return result, nil
}
