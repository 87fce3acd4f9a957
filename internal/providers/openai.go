package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const OpenAIName = "openai"

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional override for compatible endpoints
	DefaultModel string
	Timeout      time.Duration
	RPM          int
	MaxRetries   int
	RetryDelay   time.Duration
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
	timeout      time.Duration
	limiter      *RateLimiter
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// SDK retries are disabled; retry policy lives here so rate limiting
		// and attempt accounting stay consistent across providers.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		timeout:      cfg.Timeout,
		limiter:      NewRateLimiter(cfg.RPM),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

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

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    buildOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseFormat != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	attempts := 0
	var completion *openai.ChatCompletion
	err := retry.Do(
		func() error {
			attempts++
			var callErr error
			completion, callErr = c.client.Chat.Completions.New(ctx, params)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
		Attempts:  attempts,
	}

	if err != nil {
		result.Success = false
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("openai chat failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	content := completion.Choices[0].Message.Content

	result.Success = true
	result.Content = content
	result.ModelUsed = completion.Model
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if req.ResponseFormat != nil && content != "" {
		var parsed json.RawMessage
		if jsonErr := json.Unmarshal([]byte(content), &parsed); jsonErr == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", jsonErr)
		}
	}

	return result, nil
}

// buildOpenAIMessages converts provider-neutral messages into SDK params,
// expanding image attachments into multipart user content.
func buildOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
			}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}
