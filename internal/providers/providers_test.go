package providers

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRateLimiterWait(t *testing.T) {
	limiter := NewRateLimiter(6000) // 100/sec so the test is fast

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}

	status := limiter.Status()
	if status.TotalConsumed != 5 {
		t.Errorf("expected 5 consumed, got %d", status.TotalConsumed)
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	limiter := NewRateLimiter(1) // 1/min - second request must wait

	ctx := context.Background()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Wait(cancelled); err == nil {
		t.Error("expected context error from cancelled Wait")
	}
}

func TestRateLimiterRecord429(t *testing.T) {
	limiter := NewRateLimiter(60)
	limiter.Record429(time.Second)

	status := limiter.Status()
	if status.Last429Time.IsZero() {
		t.Error("expected Last429Time to be set")
	}
	if status.TokensAvailable != 0 {
		t.Errorf("expected drained tokens, got %d", status.TokensAvailable)
	}
}

func TestMockClientScriptedResponses(t *testing.T) {
	client := NewMockClient()
	client.Responses = []string{"first", "second"}

	ctx := context.Background()
	req := &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}

	r1, err := client.Chat(ctx, req)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if r1.Content != "first" {
		t.Errorf("expected first, got %q", r1.Content)
	}

	r2, _ := client.Chat(ctx, req)
	if r2.Content != "second" {
		t.Errorf("expected second, got %q", r2.Content)
	}

	// Queue exhausted - falls back to ResponseText
	r3, _ := client.Chat(ctx, req)
	if r3.Content != "mock response" {
		t.Errorf("expected fallback, got %q", r3.Content)
	}

	if client.RequestCount() != 3 {
		t.Errorf("expected 3 requests, got %d", client.RequestCount())
	}
}

func TestMockClientStructuredOutput(t *testing.T) {
	client := NewMockClient()
	client.ResponseJSON = json.RawMessage(`{"title":"Test"}`)

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "hi"}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(result.ParsedJSON) == 0 {
		t.Error("expected ParsedJSON to be populated")
	}
}

func TestMockClientFailure(t *testing.T) {
	client := NewMockClient()
	client.ShouldFail = true

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Success {
		t.Error("result should not be marked success")
	}
	if result.ErrorType != "mock_failure" {
		t.Errorf("unexpected error type %q", result.ErrorType)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	mock := NewMockClient()
	reg.RegisterLLM("mock", mock)

	client, err := reg.LLM("mock")
	if err != nil {
		t.Fatalf("LLM lookup failed: %v", err)
	}
	if client.Name() != MockClientName {
		t.Errorf("unexpected client name %q", client.Name())
	}

	if _, err := reg.LLM("missing"); err == nil {
		t.Error("expected error for missing client")
	}

	if len(reg.Names()) != 1 {
		t.Errorf("expected 1 registered name, got %d", len(reg.Names()))
	}
}
