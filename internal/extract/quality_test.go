package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/providers"
)

func TestParseQualityResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"contract", "SCORE: 8\nREASONING: clean text", 8},
		{"contract lowercase", "score: 3\nreasoning: garbled", 3},
		{"clamped high", "SCORE: 15\nREASONING: overeager", 10},
		{"clamped low", "SCORE: 0\nREASONING: confused", 1},
		{"digit fallback", "I would rate this a 7 out of 10.", 7},
		{"total failure", "no digits here at all", defaultQualityScore},
		{"empty", "", defaultQualityScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasoning, _ := parseQualityResponse(tt.content)
			if score != tt.want {
				t.Errorf("score = %d, want %d", score, tt.want)
			}
			if reasoning == "" {
				t.Error("reasoning should never be empty")
			}
			if score < 1 || score > 10 {
				t.Errorf("score %d outside [1,10]", score)
			}
		})
	}
}

func TestAssessEmptyText(t *testing.T) {
	mock := providers.NewMockClient()
	a := NewQualityAssessor(QualityAssessorConfig{LLM: mock, Cache: cache.NewMemory()})

	score, reasoning := a.Assess(context.Background(), "   ")
	if score != 1 {
		t.Errorf("empty text score = %d, want 1", score)
	}
	if reasoning == "" {
		t.Error("expected reasoning for empty text")
	}
	if mock.RequestCount() != 0 {
		t.Error("empty text should not hit the LLM")
	}
}

func TestAssessCachesResult(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "SCORE: 9\nREASONING: excellent"
	mem := cache.NewMemory()
	a := NewQualityAssessor(QualityAssessorConfig{LLM: mock, Cache: mem})

	ctx := context.Background()
	text := "Chocolate Cake\n\n2 cups flour\n1 cup sugar"

	score1, _ := a.Assess(ctx, text)
	if score1 != 9 {
		t.Fatalf("score = %d, want 9", score1)
	}

	// Second call with same (differently-cased) text hits the cache
	score2, _ := a.Assess(ctx, strings.ToUpper(text))
	if score2 != 9 {
		t.Errorf("cached score = %d, want 9", score2)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("expected 1 LLM call, got %d", mock.RequestCount())
	}
}

func TestAssessLLMFailureDefaultsToFive(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	a := NewQualityAssessor(QualityAssessorConfig{LLM: mock, Cache: cache.NewMemory()})

	score, reasoning := a.Assess(context.Background(), "some ocr text")
	if score != defaultQualityScore {
		t.Errorf("score = %d, want %d", score, defaultQualityScore)
	}
	if !strings.HasPrefix(reasoning, "Assessment failed") {
		t.Errorf("unexpected reasoning %q", reasoning)
	}
}

func TestAssessDoesNotCacheFailureDefault(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	mem := cache.NewMemory()
	a := NewQualityAssessor(QualityAssessorConfig{LLM: mock, Cache: mem})

	ctx := context.Background()
	text := "Chocolate Cake\n\n2 cups flour"

	score, _ := a.Assess(ctx, text)
	if score != defaultQualityScore {
		t.Fatalf("score = %d, want default %d", score, defaultQualityScore)
	}

	// The LLM recovers; the transient default must not have been cached
	mock.ShouldFail = false
	mock.ResponseText = "SCORE: 9\nREASONING: clean scan"

	score, reasoning := a.Assess(ctx, text)
	if score != 9 {
		t.Errorf("score after recovery = %d (%q), want 9", score, reasoning)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("expected 2 LLM calls, got %d", mock.RequestCount())
	}
}

func TestAssessCorruptCacheEntryRecomputed(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "SCORE: 7\nREASONING: fine"
	mem := cache.NewMemory()
	a := NewQualityAssessor(QualityAssessorConfig{LLM: mock, Cache: mem})

	ctx := context.Background()
	text := "some page text"
	key := cache.KeyString(qualityNamespace, strings.ToLower(strings.TrimSpace(text)))
	if err := mem.Set(ctx, key, []byte("not json"), time.Hour); err != nil {
		t.Fatal(err)
	}

	score, _ := a.Assess(ctx, text)
	if score != 7 {
		t.Errorf("score = %d, want recomputed 7", score)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("expected recompute to call the LLM once, got %d", mock.RequestCount())
	}
}
