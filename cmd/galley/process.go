package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/config"
	"github.com/jackzampolin/galley/internal/extract"
	"github.com/jackzampolin/galley/internal/home"
	"github.com/jackzampolin/galley/internal/ingest"
	"github.com/jackzampolin/galley/internal/ocr"
	"github.com/jackzampolin/galley/internal/output"
	"github.com/jackzampolin/galley/internal/pipeline"
	"github.com/jackzampolin/galley/internal/providers"
	"github.com/jackzampolin/galley/internal/recipe"
	"github.com/jackzampolin/galley/internal/segment"
)

var (
	processDocID   string
	processWorkers int
	processVerbose bool
)

var processCmd = &cobra.Command{
	Use:   "process [pdf-or-image-dir]",
	Short: "Extract recipes from a scanned cookbook",
	Long: `Process a scanned cookbook into structured recipes.

The input is either a PDF (rasterized into per-page images under the galley
home directory) or a directory of page images named with a page-number
suffix (page-1.png, page-2.png, ...).

Examples:
  galley process cookbook.pdf
  galley process ./scans -o json > recipes.json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := slog.LevelInfo
		if processVerbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		if processWorkers > 0 {
			cfg.Pipeline.Workers = processWorkers
		}
		mgr.OnChange(func(c *config.Config) {
			logger.Info("configuration reloaded")
		})
		mgr.WatchConfig()

		store, err := cache.Open(h.CachePath())
		if err != nil {
			return fmt.Errorf("open response cache: %w", err)
		}
		defer store.Close()
		counting := cache.NewCounting(store)

		registry := providers.NewRegistry()
		registry.SetLogger(logger)
		for name, p := range cfg.EnabledProviders() {
			client, err := buildLLMClient(p)
			if err != nil {
				return fmt.Errorf("provider %s: %w", name, err)
			}
			registry.RegisterLLM(name, client)
		}

		base, err := registry.LLM(cfg.Models.Provider)
		if err != nil {
			return err
		}
		llm := providers.NewTracking(base)

		docID := processDocID
		if docID == "" {
			docID = uuid.NewString()
		}

		pages, err := loadPages(cmd, h, docID, args[0], logger)
		if err != nil {
			return err
		}

		ttl := time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour
		pageTimeout := time.Duration(cfg.Pipeline.PageTimeoutSeconds) * time.Second
		segmentTimeout := time.Duration(cfg.Pipeline.SegmentTimeoutSeconds) * time.Second

		p := pipeline.New(
			pipeline.Config{
				Workers:          cfg.Pipeline.Workers,
				QualityThreshold: cfg.Pipeline.QualityThreshold,
				OCRTimeout:       pageTimeout,
				Logger:           logger,
			},
			pipeline.Components{
				Preprocessor: ocr.NewPreprocessor(logger),
				Engine: ocr.NewTesseractEngine(ocr.TesseractConfig{
					Language: cfg.OCR.Language,
					DPI:      cfg.OCR.DPI,
				}),
				Quality: extract.NewQualityAssessor(extract.QualityAssessorConfig{
					LLM:     llm,
					Cache:   counting,
					Model:   cfg.Models.Quality,
					Timeout: pageTimeout,
					TTL:     ttl,
					Logger:  logger,
				}),
				Vision: extract.NewVisionExtractor(extract.VisionExtractorConfig{
					LLM:     llm,
					Cache:   counting,
					Model:   cfg.Models.Vision,
					Mode:    extract.Mode(cfg.Pipeline.VisionMode),
					Timeout: pageTimeout,
					TTL:     ttl,
					Logger:  logger,
				}),
				Segmenter: segment.NewSegmenter(logger,
					segment.NewLLMStrategy(segment.LLMStrategyConfig{
						LLM:     llm,
						Model:   cfg.Models.Segmentation,
						Timeout: segmentTimeout,
						Logger:  logger,
					}),
					segment.NewPatternStrategy(nil),
					segment.SingleStrategy{},
				),
				Fields: recipe.NewFieldParser(recipe.FieldParserConfig{
					LLM:     llm,
					Cache:   counting,
					Model:   cfg.Models.Parsing,
					Timeout: segmentTimeout,
					TTL:     ttl,
					Logger:  logger,
				}),
				Cache: counting,
				Usage: llm,
			},
		)

		result, err := p.Run(ctx, docID, pages)
		if err != nil {
			return err
		}
		if err := output.Write(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("no recipes extracted from %s", args[0])
		}
		return nil
	},
}

// loadPages resolves the input path into ordered page images, rasterizing
// PDFs into the home directory first.
func loadPages(cmd *cobra.Command, h *home.Dir, docID, path string, logger *slog.Logger) ([]ingest.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ingest.FromDir(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if err := h.EnsurePagesDir(docID); err != nil {
			return nil, err
		}
		return ingest.FromPDF(cmd.Context(), path, h.PagesDir(docID), logger)
	}
	return nil, fmt.Errorf("input must be a PDF file or a directory of page images: %s", path)
}

func buildLLMClient(p config.ProviderCfg) (providers.LLMClient, error) {
	apiKey := config.ResolveEnvVars(p.APIKey)
	switch p.Type {
	case "openrouter":
		return providers.NewOpenRouterClient(providers.OpenRouterConfig{
			APIKey:  apiKey,
			BaseURL: p.BaseURL,
			RPM:     int(p.RateLimit),
		}), nil
	case "openai":
		return providers.NewOpenAIClient(providers.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: p.BaseURL,
			RPM:     int(p.RateLimit),
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", p.Type)
	}
}

func init() {
	processCmd.Flags().StringVar(&processDocID, "doc-id", "", "document id (default: random)")
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "override worker count")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(processCmd)
}
