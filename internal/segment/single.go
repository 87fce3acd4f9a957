package segment

import (
	"context"
	"strings"
)

// singleConfidence marks the whole-document fallback as a last resort.
const singleConfidence = 1

// SingleStrategy treats the entire document as one segment. It is the final
// fallback: any non-empty text yields exactly one segment.
type SingleStrategy struct{}

// Name implements Strategy.
func (SingleStrategy) Name() Tier { return TierSingle }

// Split implements Strategy.
func (SingleStrategy) Split(_ context.Context, text string) ([]Segment, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	return []Segment{{
		Title:      "Recipe 1",
		FullText:   trimmed,
		Confidence: singleConfidence,
	}}, nil
}
