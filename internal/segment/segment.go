// Package segment splits combined document text into candidate recipe
// segments. Strategies are tried in order until one produces segments,
// degrading from LLM boundary detection to title-pattern heuristics to a
// single whole-document segment.
package segment

import (
	"context"
	"log/slog"
	"strings"
)

// Tier identifies which strategy produced a segment.
type Tier string

const (
	TierLLM     Tier = "llm"
	TierPattern Tier = "pattern"
	TierSingle  Tier = "single"
)

// Segment is one candidate recipe span of the combined document text.
type Segment struct {
	Title      string
	FullText   string
	Confidence int // 1-10, higher means more likely a real recipe boundary
	Tier       Tier
}

// Strategy attempts one way of splitting text into segments. Returning zero
// segments, with or without an error, passes control to the next strategy.
type Strategy interface {
	Name() Tier
	Split(ctx context.Context, text string) ([]Segment, error)
}

// Segmenter runs strategies in order and returns the first non-empty result.
type Segmenter struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewSegmenter creates a Segmenter over the given strategies. Order matters:
// earlier strategies win.
func NewSegmenter(logger *slog.Logger, strategies ...Strategy) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{strategies: strategies, logger: logger}
}

// Split returns the segments of text. Empty or whitespace-only input yields
// zero segments without consulting any strategy.
func (s *Segmenter) Split(ctx context.Context, text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, strat := range s.strategies {
		if ctx.Err() != nil {
			return nil
		}

		segs, err := strat.Split(ctx, text)
		if err != nil {
			s.logger.Warn("segmentation strategy failed",
				"tier", strat.Name(),
				"error", err)
			continue
		}
		if len(segs) == 0 {
			s.logger.Debug("segmentation strategy produced no segments",
				"tier", strat.Name())
			continue
		}

		for i := range segs {
			segs[i].Tier = strat.Name()
		}
		s.logger.Info("text segmented",
			"tier", strat.Name(),
			"segments", len(segs))
		return segs
	}

	return nil
}
