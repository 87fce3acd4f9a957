package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/extract"
	"github.com/jackzampolin/galley/internal/ingest"
	"github.com/jackzampolin/galley/internal/ocr"
	"github.com/jackzampolin/galley/internal/providers"
	"github.com/jackzampolin/galley/internal/recipe"
	"github.com/jackzampolin/galley/internal/segment"
)

// defaultQualityThreshold is the minimum OCR quality score that avoids the
// vision fallback.
const defaultQualityThreshold = 6

// Config holds run-level tuning for a Pipeline.
type Config struct {
	// Workers bounds concurrent per-page and per-segment work.
	Workers int

	// QualityThreshold is the minimum acceptable OCR quality score.
	QualityThreshold int

	// OCRTimeout bounds a single OCR engine call so a wedged engine
	// becomes a per-page failure instead of stalling the run.
	OCRTimeout time.Duration

	Logger *slog.Logger
}

// Components are the injected collaborators a Pipeline orchestrates. Cache
// and Usage are optional and only feed statistics.
type Components struct {
	Preprocessor *ocr.Preprocessor
	Engine       ocr.Engine
	Quality      *extract.QualityAssessor
	Vision       *extract.VisionExtractor
	Segmenter    *segment.Segmenter
	Fields       *recipe.FieldParser

	Cache *cache.Counting
	Usage *providers.Tracking
}

// Pipeline runs the document-to-recipes extraction flow.
type Pipeline struct {
	cfg Config
	c   Components
	log *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config, c Components) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QualityThreshold == 0 {
		cfg.QualityThreshold = defaultQualityThreshold
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, c: c, log: cfg.Logger}
}

// Run processes one document's pages into structured recipes. Per-page and
// per-segment failures are isolated and aggregated; Run returns an error
// only on cancellation. Success is true iff at least one recipe was
// created.
func (p *Pipeline) Run(ctx context.Context, documentID string, pages []ingest.Page) (*Result, error) {
	start := time.Now()
	result := &Result{
		DocumentID: documentID,
		Recipes:    []*recipe.ParsedRecipe{},
		Errors:     []UnitError{},
	}

	p.log.Info("starting extraction run",
		"document_id", documentID,
		"pages", len(pages),
		"workers", p.cfg.Workers)

	extractions, pageErrors, err := p.extractPages(ctx, pages)
	if err != nil {
		return nil, err
	}
	result.Pages = extractions
	result.Errors = append(result.Errors, pageErrors...)

	for _, e := range extractions {
		result.Stats.PagesProcessed++
		if e.Method == MethodFailed {
			result.Stats.PagesFailed++
		}
		if e.FallbackUsed {
			result.Stats.OCRFallbacks++
		}
	}

	combined := Combine(extractions)
	result.Stats.CombinedChars = len(combined)

	segments := p.c.Segmenter.Split(ctx, combined)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Stats.SegmentsFound = len(segments)
	if len(segments) > 0 {
		result.Stats.SegmentationTier = segments[0].Tier
	}

	recipes, segmentErrors, err := p.parseSegments(ctx, segments)
	if err != nil {
		return nil, err
	}
	result.Recipes = recipes
	result.Errors = append(result.Errors, segmentErrors...)
	result.Stats.RecipesCreated = len(recipes)
	result.Stats.RecipesFailed = len(segments) - len(recipes)

	if p.c.Cache != nil {
		result.Stats.CacheHits = p.c.Cache.Hits()
		result.Stats.CacheMisses = p.c.Cache.Misses()
	}
	if p.c.Usage != nil {
		usage := p.c.Usage.Usage()
		result.Stats.LLMCalls = usage.Calls
		result.Stats.CostUSD = usage.CostUSD
	}
	result.Stats.Duration = time.Since(start)
	result.Success = result.Stats.RecipesCreated > 0

	p.log.Info("extraction run finished",
		"document_id", documentID,
		"success", result.Success,
		"recipes", result.Stats.RecipesCreated,
		"pages_failed", result.Stats.PagesFailed,
		"tier", result.Stats.SegmentationTier,
		"duration", result.Stats.Duration)
	return result, nil
}

// extractPages runs per-page OCR and fallback extraction on a bounded
// worker pool and waits for every page before returning. A page failure
// never aborts the run; only cancellation does.
func (p *Pipeline) extractPages(ctx context.Context, pages []ingest.Page) ([]ExtractionResult, []UnitError, error) {
	extractions := make([]ExtractionResult, len(pages))

	var mu sync.Mutex
	var unitErrors []UnitError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, pageErr := p.extractPage(gctx, page)
			extractions[i] = res
			if pageErr != nil {
				mu.Lock()
				unitErrors = append(unitErrors, UnitError{
					Stage:  "page",
					Unit:   fmt.Sprintf("page %d", page.Number),
					Detail: pageErr.Error(),
				})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return extractions, unitErrors, nil
}

// extractPage produces one page's ExtractionResult. The returned error is
// informational; the result always carries the page's final state.
func (p *Pipeline) extractPage(ctx context.Context, page ingest.Page) (ExtractionResult, error) {
	result := ExtractionResult{PageNumber: page.Number}

	raw, err := os.ReadFile(page.Path)
	if err != nil {
		result.Method = MethodFailed
		result.Reasoning = fmt.Sprintf("read page image: %v", err)
		return result, fmt.Errorf("read page image: %w", err)
	}

	normalized := p.c.Preprocessor.Normalize(raw)

	ocrCtx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	text, ocrErr := p.c.Engine.ExtractText(ocrCtx, normalized)
	cancel()
	if ocrErr == nil {
		score, reasoning := p.c.Quality.Assess(ctx, text)
		result.QualityScore = score
		result.Reasoning = reasoning
		if score >= p.cfg.QualityThreshold {
			result.Method = MethodTraditional
			result.Text = text
			return result, nil
		}
		p.log.Info("OCR quality below threshold, using vision fallback",
			"page", page.Number,
			"score", score,
			"threshold", p.cfg.QualityThreshold)
	} else {
		p.log.Warn("OCR engine failed, using vision fallback",
			"page", page.Number,
			"error", ocrErr)
	}

	// Vision gets the original image: binarization helps Tesseract, not
	// vision models.
	result.FallbackUsed = true
	visionText, visionErr := p.c.Vision.ExtractPage(ctx, raw, page.Number)
	if visionErr == nil {
		result.Method = MethodLLM
		result.Text = visionText
		result.QualityScore = 0
		return result, nil
	}

	if ocrErr == nil {
		// Low-quality OCR text beats nothing; downstream review catches it.
		result.Method = MethodTraditional
		result.Text = text
		return result, fmt.Errorf("vision fallback failed, kept low-quality OCR text: %w", visionErr)
	}

	result.Method = MethodFailed
	result.Reasoning = fmt.Sprintf("OCR failed: %v; vision failed: %v", ocrErr, visionErr)
	return result, fmt.Errorf("page extraction failed: OCR: %v; vision: %w", ocrErr, visionErr)
}

// parseSegments structures segments into recipes on a bounded worker pool.
// Segments failing validation are dropped with their text retained in the
// error list.
func (p *Pipeline) parseSegments(ctx context.Context, segments []segment.Segment) ([]*recipe.ParsedRecipe, []UnitError, error) {
	parsed := make([]*recipe.ParsedRecipe, len(segments))

	var mu sync.Mutex
	var unitErrors []UnitError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, seg := range segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, err := p.c.Fields.Parse(gctx, seg)
			if err != nil {
				p.log.Warn("segment dropped",
					"title", seg.Title,
					"error", err)
				mu.Lock()
				unitErrors = append(unitErrors, UnitError{
					Stage:  "segment",
					Unit:   seg.Title,
					Detail: err.Error(),
					Text:   seg.FullText,
				})
				mu.Unlock()
				return nil
			}

			rec.ParsedIngredients = make([]recipe.ParsedIngredient, 0, len(rec.Ingredients))
			for _, line := range rec.Ingredients {
				rec.ParsedIngredients = append(rec.ParsedIngredients, recipe.ParseIngredient(line))
			}
			parsed[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	recipes := make([]*recipe.ParsedRecipe, 0, len(parsed))
	for _, rec := range parsed {
		if rec != nil {
			recipes = append(recipes, rec)
		}
	}
	return recipes, unitErrors, nil
}
