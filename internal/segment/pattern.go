package segment

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// patternConfidence is the fixed confidence for heuristically detected
// segments. Heuristics find plausible boundaries but cannot verify them.
const patternConfidence = 3

// TitleDetector decides whether a line of text looks like a recipe title.
type TitleDetector interface {
	IsTitle(line string, precededByBlank bool) bool
}

// PatternStrategy splits text at lines a TitleDetector flags as recipe
// titles: N detected titles yield exactly N segments.
type PatternStrategy struct {
	detector TitleDetector
}

// NewPatternStrategy creates a PatternStrategy. A nil detector uses the
// default heuristic.
func NewPatternStrategy(detector TitleDetector) *PatternStrategy {
	if detector == nil {
		detector = DefaultTitleDetector{}
	}
	return &PatternStrategy{detector: detector}
}

// Name implements Strategy.
func (s *PatternStrategy) Name() Tier { return TierPattern }

// Split implements Strategy.
func (s *PatternStrategy) Split(_ context.Context, text string) ([]Segment, error) {
	lines := strings.Split(text, "\n")

	var titleIdx []int
	for i, line := range lines {
		precededByBlank := i == 0 || strings.TrimSpace(lines[i-1]) == ""
		if s.detector.IsTitle(line, precededByBlank) {
			titleIdx = append(titleIdx, i)
		}
	}
	if len(titleIdx) == 0 {
		return nil, nil
	}

	// Text before the first title stays with the first segment rather than
	// being discarded.
	starts := append([]int{0}, titleIdx[1:]...)

	segments := make([]Segment, 0, len(titleIdx))
	for n, start := range starts {
		end := len(lines)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		body := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if body == "" {
			continue
		}
		segments = append(segments, Segment{
			Title:      fmt.Sprintf("Recipe %d", len(segments)+1),
			FullText:   body,
			Confidence: patternConfidence,
		})
	}
	return segments, nil
}

// DefaultTitleDetector flags short standalone lines in title or upper case
// as probable recipe titles.
type DefaultTitleDetector struct{}

// IsTitle implements TitleDetector.
func (DefaultTitleDetector) IsTitle(line string, precededByBlank bool) bool {
	trimmed := strings.TrimSpace(line)
	if !precededByBlank || len(trimmed) < 3 || len(trimmed) > 60 {
		return false
	}
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, ":") || strings.HasSuffix(trimmed, ",") {
		return false
	}

	first := []rune(trimmed)[0]
	if unicode.IsDigit(first) || !unicode.IsLetter(first) {
		return false
	}

	return isAllUpper(trimmed) || isTitleCased(trimmed)
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// isTitleCased requires every significant word to start uppercase. Short
// connectives are allowed in lowercase.
func isTitleCased(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	upper := 0
	for i, w := range words {
		r := []rune(w)[0]
		if !unicode.IsLetter(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper++
			continue
		}
		if i > 0 && len(w) <= 4 {
			// "with", "and", "in", "of"
			continue
		}
		return false
	}
	return upper >= 1
}
