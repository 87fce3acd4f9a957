package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/providers"
	"github.com/jackzampolin/galley/internal/segment"
)

// recipeNamespace keys cached structured recipes by segment text.
const recipeNamespace = "recipe.v1"

// ErrorKind classifies why a segment failed to parse into a recipe.
type ErrorKind string

const (
	ErrKindLLMFailure        ErrorKind = "llm_failure"
	ErrKindMalformedResponse ErrorKind = "malformed_response"
	ErrKindValidationFailed  ErrorKind = "validation_failed"
)

// ParseError reports a failed segment parse. The segment text is retained by
// the caller's error log, not here.
type ParseError struct {
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recipe parse (%s): %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// cachedRecipeSchema validates cached recipe payloads before reuse.
var cachedRecipeSchema = jsonschema.MustCompileString("recipe.json", `{
	"type": "object",
	"required": ["title", "ingredients", "instructions"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"ingredients": {"type": "array", "items": {"type": "string"}},
		"instructions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// FieldParserConfig configures a FieldParser.
type FieldParserConfig struct {
	LLM     providers.LLMClient
	Cache   cache.Cache
	Model   string
	Timeout time.Duration
	TTL     time.Duration
	Logger  *slog.Logger
}

// FieldParser turns one segment's text into a ParsedRecipe via a
// deterministic structuring call, with content-addressed caching and
// validate-on-read.
type FieldParser struct {
	llm     providers.LLMClient
	cache   cache.Cache
	model   string
	timeout time.Duration
	ttl     time.Duration
	logger  *slog.Logger
}

// NewFieldParser creates a FieldParser.
func NewFieldParser(cfg FieldParserConfig) *FieldParser {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FieldParser{
		llm:     cfg.LLM,
		cache:   cfg.Cache,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
	}
}

// Parse structures one segment into a recipe. Validation failures and
// malformed responses return a *ParseError; the segment is dropped by the
// caller, never silently discarded.
func (p *FieldParser) Parse(ctx context.Context, seg segment.Segment) (*ParsedRecipe, error) {
	key := cache.KeyString(recipeNamespace, seg.FullText)

	if p.cache != nil {
		if payload, ok, err := p.cache.Get(ctx, key); err == nil && ok {
			if rec, err := decodeCachedRecipe(payload, seg); err == nil {
				return rec, nil
			}
			p.logger.Warn("purging invalid cached recipe", "key", key)
			_ = p.cache.Delete(ctx, key)
		}
	}

	raw, err := p.structure(ctx, seg.FullText)
	if err != nil {
		return nil, err
	}

	rec, err := recipeFromRaw(raw, seg)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if payload, err := json.Marshal(rec); err == nil {
			if err := p.cache.Set(ctx, key, payload, p.ttl); err != nil {
				p.logger.Warn("failed to cache recipe", "error", err)
			}
		}
	}
	return rec, nil
}

func (p *FieldParser) structure(ctx context.Context, text string) (map[string]any, error) {
	result, err := p.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: fieldParserSystemPrompt},
			{Role: "user", Content: text},
		},
		Model:          p.model,
		Temperature:    0,
		Timeout:        p.timeout,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, &ParseError{Kind: ErrKindLLMFailure, Err: err}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFences(result.Content)), &raw); err != nil {
		return nil, &ParseError{Kind: ErrKindMalformedResponse, Err: err}
	}
	return raw, nil
}

// recipeFromRaw validates and coerces the model's loosely typed response.
// An empty title falls back to the segment's title; mistyped list fields
// coerce to empty lists; numeric fields parse flexibly and never fail.
func recipeFromRaw(raw map[string]any, seg segment.Segment) (*ParsedRecipe, error) {
	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		title = strings.TrimSpace(seg.Title)
	}
	if title == "" {
		return nil, &ParseError{Kind: ErrKindValidationFailed, Err: fmt.Errorf("empty title")}
	}

	ingredients := coerceStringList(raw["ingredients"])
	instructions := coerceStringList(raw["instructions"])
	if len(ingredients) == 0 && len(instructions) == 0 {
		return nil, &ParseError{Kind: ErrKindValidationFailed, Err: fmt.Errorf("no ingredients or instructions")}
	}

	return &ParsedRecipe{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(stringField(raw, "description")),
		Ingredients:     ingredients,
		Instructions:    instructions,
		PrepTimeMinutes: parseFlexibleInt(raw["prep_time"]),
		CookTimeMinutes: parseFlexibleInt(raw["cook_time"]),
		Servings:        parseFlexibleInt(raw["servings"]),
		Difficulty:      strings.TrimSpace(stringField(raw, "difficulty")),
		Tags:            coerceStringList(raw["tags"]),
		Source:          strings.TrimSpace(stringField(raw, "source")),

		SegmentationConfidence: seg.Confidence,
		SegmentationTier:       seg.Tier,
		OriginalSegmentTitle:   seg.Title,
	}, nil
}

// decodeCachedRecipe parses and structurally validates a cached payload.
// The segment's provenance fields are re-stamped so a cache hit from an
// earlier run with a different segmentation tier stays accurate.
func decodeCachedRecipe(payload []byte, seg segment.Segment) (*ParsedRecipe, error) {
	var generic any
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, fmt.Errorf("parse cached recipe: %w", err)
	}
	if err := cachedRecipeSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("validate cached recipe: %w", err)
	}

	var rec ParsedRecipe
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, fmt.Errorf("cached recipe has empty title")
	}

	rec.SegmentationConfidence = seg.Confidence
	rec.SegmentationTier = seg.Tier
	rec.OriginalSegmentTitle = seg.Title
	return &rec, nil
}

func stringField(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

// coerceStringList returns the string elements of v, or an empty list when
// v is missing or mistyped.
func coerceStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
