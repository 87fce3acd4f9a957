package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackzampolin/galley/internal/providers"
)

const (
	// defaultMaxInputChars bounds how much document text is sent to the
	// model in a single segmentation call.
	defaultMaxInputChars = 48000

	truncationMarker = "\n\n[TEXT TRUNCATED]"

	// minSegmentConfidence and minSegmentLength filter out fragments the
	// model flagged as doubtful or that are too short to be a recipe.
	minSegmentConfidence = 5
	minSegmentLength     = 50
)

// LLMStrategyConfig configures an LLMStrategy.
type LLMStrategyConfig struct {
	LLM           providers.LLMClient
	Model         string
	Timeout       time.Duration
	MaxInputChars int
	Logger        *slog.Logger
}

// LLMStrategy asks a language model to locate recipe boundaries and returns
// the candidates that pass confidence and length filters.
type LLMStrategy struct {
	llm           providers.LLMClient
	model         string
	timeout       time.Duration
	maxInputChars int
	logger        *slog.Logger
}

// NewLLMStrategy creates an LLMStrategy.
func NewLLMStrategy(cfg LLMStrategyConfig) *LLMStrategy {
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = defaultMaxInputChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMStrategy{
		llm:           cfg.LLM,
		model:         cfg.Model,
		timeout:       cfg.Timeout,
		maxInputChars: cfg.MaxInputChars,
		logger:        cfg.Logger,
	}
}

// Name implements Strategy.
func (s *LLMStrategy) Name() Tier { return TierLLM }

type segmentCandidate struct {
	Title      string `json:"title"`
	FullText   string `json:"full_text"`
	Confidence int    `json:"confidence"`
}

// Split implements Strategy.
func (s *LLMStrategy) Split(ctx context.Context, text string) ([]Segment, error) {
	input := text
	if len(input) > s.maxInputChars {
		// Back off to a rune boundary so the cut never produces invalid UTF-8
		cut := s.maxInputChars
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut] + truncationMarker
		s.logger.Warn("segmentation input truncated",
			"original_chars", len(text),
			"sent_chars", cut)
	}

	result, err := s.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: segmentSystemPrompt},
			{Role: "user", Content: input},
		},
		Model:       s.model,
		Temperature: 0,
		Timeout:     s.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("segmentation call: %w", err)
	}

	candidates, err := parseSegmentResponse(result.Content)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(candidates))
	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		fullText := strings.TrimSpace(c.FullText)
		if title == "" || len(fullText) < minSegmentLength || c.Confidence < minSegmentConfidence {
			s.logger.Debug("segment candidate filtered",
				"title", title,
				"chars", len(fullText),
				"confidence", c.Confidence)
			continue
		}
		segments = append(segments, Segment{
			Title:      title,
			FullText:   fullText,
			Confidence: c.Confidence,
		})
	}
	return segments, nil
}

// parseSegmentResponse decodes the model's JSON array, repairing truncated
// output so that complete leading objects survive a cut-off response.
func parseSegmentResponse(content string) ([]segmentCandidate, error) {
	raw, ok := repairJSONArray(content)
	if !ok {
		return nil, fmt.Errorf("no JSON array in segmentation response")
	}

	var candidates []segmentCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("parse segmentation response: %w", err)
	}
	return candidates, nil
}
