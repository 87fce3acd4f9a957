// Package recipe turns recipe segments into structured records: an
// LLM-backed field parser for the recipe as a whole and a pure deterministic
// parser for individual ingredient lines.
package recipe

import "github.com/jackzampolin/galley/internal/segment"

// ParsedRecipe is one fully structured recipe extracted from a document.
type ParsedRecipe struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	PrepTimeMinutes *int     `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes *int     `json:"cook_time_minutes,omitempty"`
	Servings        *int     `json:"servings,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Source          string   `json:"source,omitempty"`

	// Provenance from the segmentation stage.
	SegmentationConfidence int          `json:"segmentation_confidence"`
	SegmentationTier       segment.Tier `json:"segmentation_tier"`
	OriginalSegmentTitle   string       `json:"original_segment_title"`

	ParsedIngredients []ParsedIngredient `json:"parsed_ingredients,omitempty"`
}

// ParsedIngredient is the deterministic decomposition of one ingredient
// line. Quantity is nil when no leading quantity was recognized.
type ParsedIngredient struct {
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit,omitempty"`
	Preparation string   `json:"preparation,omitempty"`
	Optional    bool     `json:"optional"`
}
