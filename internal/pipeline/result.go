// Package pipeline orchestrates the full extraction run: per-page OCR with
// vision fallback, page combination, recipe segmentation, and per-segment
// structured parsing, with bounded concurrency and partial-failure
// isolation.
package pipeline

import (
	"time"

	"github.com/jackzampolin/galley/internal/recipe"
	"github.com/jackzampolin/galley/internal/segment"
)

// Method records how a page's text was produced.
type Method string

const (
	MethodTraditional Method = "traditional"
	MethodLLM         Method = "llm"
	MethodFailed      Method = "failed"
)

// ExtractionResult is the immutable per-page outcome.
type ExtractionResult struct {
	PageNumber   int    `json:"page_number"`
	Text         string `json:"text"`
	Method       Method `json:"method"`
	QualityScore int    `json:"quality_score,omitempty"` // set only for traditional
	Reasoning    string `json:"reasoning,omitempty"`
	FallbackUsed bool   `json:"fallback_used"`
}

// UnitError records one isolated per-page or per-segment failure. Text
// retains a dropped segment's raw content so nothing is silently discarded.
type UnitError struct {
	Stage  string `json:"stage"` // "page" or "segment"
	Unit   string `json:"unit"`
	Detail string `json:"detail"`
	Text   string `json:"text,omitempty"`
}

// Stats summarizes one run for observability.
type Stats struct {
	PagesProcessed   int           `json:"pages_processed"`
	PagesFailed      int           `json:"pages_failed"`
	OCRFallbacks     int           `json:"ocr_fallbacks"`
	CombinedChars    int           `json:"combined_chars"`
	SegmentsFound    int           `json:"segments_found"`
	SegmentationTier segment.Tier  `json:"segmentation_tier,omitempty"`
	RecipesCreated   int           `json:"recipes_created"`
	RecipesFailed    int           `json:"recipes_failed"`
	CacheHits        int           `json:"cache_hits"`
	CacheMisses      int           `json:"cache_misses"`
	LLMCalls         int           `json:"llm_calls"`
	CostUSD          float64       `json:"cost_usd"`
	Duration         time.Duration `json:"duration"`
}

// Result is the user-visible outcome of a run. Partial success, with some
// pages or segments failed and others extracted, is the common case and
// reports Success=true with a populated error list.
type Result struct {
	DocumentID string                 `json:"document_id"`
	Success    bool                   `json:"success"`
	Recipes    []*recipe.ParsedRecipe `json:"recipes"`
	Pages      []ExtractionResult     `json:"pages"`
	Stats      Stats                  `json:"statistics"`
	Errors     []UnitError            `json:"errors"`
}
