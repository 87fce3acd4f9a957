package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func openRouterFixture(content string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "anthropic/claude-3.5-sonnet",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
			"cost":              0.0012,
		},
	}
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Verify request
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterFixture("Hello! How can I help you?"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "user", Content: "Hello"},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != "Hello! How can I help you?" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.CostUSD != 0.0012 {
			t.Errorf("CostUSD = %f, want 0.0012", result.CostUSD)
		}
	})

	t.Run("vision message with images", func(t *testing.T) {
		var receivedContent any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req openRouterRequest
			json.NewDecoder(r.Body).Decode(&req)

			// Capture the content to verify image handling
			if len(req.Messages) > 0 {
				receivedContent = req.Messages[0].Content
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterFixture("I see an image"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{
					Role:    "user",
					Content: "What's on this page?",
					Images:  [][]byte{[]byte("fake-image-data")},
				},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}

		// Verify content was sent as array with image_url
		contentSlice, ok := receivedContent.([]any)
		if !ok {
			t.Fatalf("expected content to be array, got %T", receivedContent)
		}
		if len(contentSlice) != 2 {
			t.Errorf("expected 2 content items, got %d", len(contentSlice))
		}
	})

	t.Run("structured output", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterFixture(`{"name": "test", "value": 123}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
			ResponseFormat: &ResponseFormat{
				Type: "json_object",
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.ParsedJSON == nil {
			t.Error("expected ParsedJSON to be set")
		}
	})

	t.Run("non-JSON content with structured output flags failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterFixture("sorry, no json today"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "test"}},
			ResponseFormat: &ResponseFormat{Type: "json_object"},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Success {
			t.Error("expected Success = false for unparseable structured output")
		}
		if result.ErrorType != "json_parse" {
			t.Errorf("ErrorType = %s, want json_parse", result.ErrorType)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterFixture("recovered"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: 5 * time.Millisecond,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "recovered" {
			t.Errorf("Content = %q", result.Content)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 attempts, got %d", calls.Load())
		}
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Rate limit exceeded"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 1,
			RetryDelay: 5 * time.Millisecond,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})

		if err == nil {
			t.Error("expected error")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if result.ErrorType != "http_error" {
			t.Errorf("ErrorType = %s, want http_error", result.ErrorType)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.Chat(ctx, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})

		if err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey: "test-key",
		})

		if client.Name() != OpenRouterName {
			t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
		}
		if client.baseURL != OpenRouterBaseURL {
			t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
		}
		if client.defaultModel == "" {
			t.Error("expected a default model")
		}
	})

	t.Run("interface compliance", func(t *testing.T) {
		var _ LLMClient = (*OpenRouterClient)(nil)
	})
}
