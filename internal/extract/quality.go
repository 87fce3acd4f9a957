// Package extract performs page text extraction: OCR quality assessment and
// vision-LLM fallback extraction.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/providers"
)

// qualityNamespace keys cached assessments by normalized OCR text.
const qualityNamespace = "quality.v1"

const defaultQualityScore = 5

// QualityAssessorConfig configures a QualityAssessor.
type QualityAssessorConfig struct {
	LLM     providers.LLMClient
	Cache   cache.Cache
	Model   string
	Timeout time.Duration
	TTL     time.Duration
	Logger  *slog.Logger
}

// QualityAssessor scores OCR text 1-10 with a cached rubric-based LLM call.
// Assess never fails: any error path degrades to the default score.
type QualityAssessor struct {
	llm     providers.LLMClient
	cache   cache.Cache
	model   string
	timeout time.Duration
	ttl     time.Duration
	logger  *slog.Logger
}

// NewQualityAssessor creates a QualityAssessor.
func NewQualityAssessor(cfg QualityAssessorConfig) *QualityAssessor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &QualityAssessor{
		llm:     cfg.LLM,
		cache:   cfg.Cache,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
	}
}

type qualityPayload struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Assess returns (score in [1,10], reasoning) for OCR text.
func (a *QualityAssessor) Assess(ctx context.Context, text string) (int, string) {
	if strings.TrimSpace(text) == "" {
		return 1, "No text extracted"
	}

	key := cache.KeyString(qualityNamespace, strings.ToLower(strings.TrimSpace(text)))

	if a.cache != nil {
		if payload, ok, err := a.cache.Get(ctx, key); err == nil && ok {
			var cached qualityPayload
			if err := json.Unmarshal(payload, &cached); err == nil && cached.Score >= 1 && cached.Score <= 10 {
				return cached.Score, cached.Reasoning
			}
			// Corrupt entry: purge and recompute
			_ = a.cache.Delete(ctx, key)
		}
	}

	score, reasoning, genuine := a.assess(ctx, text)
	score = clampScore(score)

	// Synthetic default scores are transient (failed call, unreadable
	// response); caching one would pin the text below the fallback
	// threshold for the full TTL.
	if a.cache != nil && genuine {
		if payload, err := json.Marshal(qualityPayload{Score: score, Reasoning: reasoning}); err == nil {
			if err := a.cache.Set(ctx, key, payload, a.ttl); err != nil {
				a.logger.Warn("failed to cache quality assessment", "error", err)
			}
		}
	}

	return score, reasoning
}

// assess returns a verdict plus whether it is genuine. A false third return
// marks a synthetic default score that must not be cached.
func (a *QualityAssessor) assess(ctx context.Context, text string) (int, string, bool) {
	result, err := a.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: qualitySystemPrompt},
			{Role: "user", Content: text},
		},
		Model:       a.model,
		Temperature: 0,
		MaxTokens:   300,
		Timeout:     a.timeout,
	})
	if err != nil {
		a.logger.Warn("quality assessment call failed", "error", err)
		return defaultQualityScore, fmt.Sprintf("Assessment failed: %v", err), false
	}

	return parseQualityResponse(result.Content)
}

var (
	scoreLinePattern     = regexp.MustCompile(`(?mi)^\s*SCORE:\s*(\d+)`)
	reasoningLinePattern = regexp.MustCompile(`(?mi)^\s*REASONING:\s*(.+)$`)
	anyScorePattern      = regexp.MustCompile(`\b([1-9]|10)\b`)
)

// parseQualityResponse extracts score and reasoning from the two-line
// contract, falling back to any digit 1-10 in the response, then to the
// default score. The third return is false only for the unparseable
// default, which carries no real verdict.
func parseQualityResponse(content string) (int, string, bool) {
	reasoning := ""
	if m := reasoningLinePattern.FindStringSubmatch(content); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}

	if m := scoreLinePattern.FindStringSubmatch(content); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			if reasoning == "" {
				reasoning = "Score parsed without reasoning"
			}
			return clampScore(score), reasoning, true
		}
	}

	// Contract violated: look for any plausible standalone score
	if m := anyScorePattern.FindStringSubmatch(content); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			return clampScore(score), "Score extracted from unstructured response", true
		}
	}

	return defaultQualityScore, "Assessment failed: unparseable response", false
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
