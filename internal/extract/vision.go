package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/galley/internal/cache"
	"github.com/jackzampolin/galley/internal/providers"
)

// visionNamespace is versioned: bumping it invalidates every cached payload
// when the prompt or payload shape changes.
const visionNamespace = "vision.v2"

// Mode selects the vision extraction strategy.
type Mode string

const (
	// ModeSingleShot extracts and structures the page in one call.
	ModeSingleShot Mode = "single_shot"
	// ModeTwoStep transcribes literally first, then structures minimally.
	// Slower, but maximizes transcription fidelity.
	ModeTwoStep Mode = "two_step"
)

// pagePayload is the cached vision result for one page.
type pagePayload struct {
	Title        string   `json:"title"`
	Text         string   `json:"text"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
}

// pagePayloadSchema structurally validates cached payloads before reuse.
var pagePayloadSchema = jsonschema.MustCompileString("page_payload.json", `{
	"type": "object",
	"required": ["title", "text"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"text": {"type": "string"},
		"ingredients": {"type": "array", "items": {"type": "string"}},
		"instructions": {"type": "array", "items": {"type": "string"}}
	}
}`)

// VisionExtractorConfig configures a VisionExtractor.
type VisionExtractorConfig struct {
	LLM       providers.LLMClient
	Cache     cache.Cache
	Model     string
	Mode      Mode
	MaxTokens int
	Timeout   time.Duration
	TTL       time.Duration
	Logger    *slog.Logger
}

// VisionExtractor extracts page text directly from the image via an
// image-capable LLM. Used as fallback when OCR quality is poor, or as the
// primary extractor when configured.
type VisionExtractor struct {
	llm       providers.LLMClient
	cache     cache.Cache
	model     string
	mode      Mode
	maxTokens int
	timeout   time.Duration
	ttl       time.Duration
	logger    *slog.Logger
}

// NewVisionExtractor creates a VisionExtractor.
func NewVisionExtractor(cfg VisionExtractorConfig) *VisionExtractor {
	if cfg.Mode == "" {
		cfg.Mode = ModeSingleShot
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VisionExtractor{
		llm:       cfg.LLM,
		cache:     cfg.Cache,
		model:     cfg.Model,
		mode:      cfg.Mode,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		ttl:       cfg.TTL,
		logger:    cfg.Logger,
	}
}

// ExtractPage extracts page text from the raw image bytes. The cache key is
// the hash of the original image, namespaced per mode so single_shot and
// two_step runs never reuse each other's payloads.
func (v *VisionExtractor) ExtractPage(ctx context.Context, image []byte, pageNum int) (string, error) {
	key := cache.Key(v.cacheNamespace(), image)

	if v.cache != nil {
		if raw, ok, err := v.cache.Get(ctx, key); err == nil && ok {
			if payload, err := decodePagePayload(raw); err == nil {
				return renderPageText(payload), nil
			}
			// Invalid cached payload: purge and recompute, never trust it
			v.logger.Warn("purging invalid cached vision payload", "page", pageNum)
			_ = v.cache.Delete(ctx, key)
		}
	}

	// Bound size before transmission; the bounded copy goes out of scope as
	// soon as the call returns so large pages don't accumulate.
	bounded := BoundImage(image)

	var payload *pagePayload
	var err error
	switch v.mode {
	case ModeTwoStep:
		payload, err = v.extractTwoStep(ctx, bounded)
	default:
		payload, err = v.extractSingleShot(ctx, bounded)
	}
	if err != nil {
		return "", fmt.Errorf("vision extraction failed for page %d: %w", pageNum, err)
	}

	if v.cache != nil {
		if raw, marshalErr := json.Marshal(payload); marshalErr == nil {
			if cacheErr := v.cache.Set(ctx, key, raw, v.ttl); cacheErr != nil {
				v.logger.Warn("failed to cache vision payload", "page", pageNum, "error", cacheErr)
			}
		}
	}

	return renderPageText(payload), nil
}

func (v *VisionExtractor) cacheNamespace() string {
	return visionNamespace + "." + string(v.mode)
}

func (v *VisionExtractor) extractSingleShot(ctx context.Context, image []byte) (*pagePayload, error) {
	result, err := v.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: visionSingleShotPrompt, Images: [][]byte{image}},
		},
		Model:          v.model,
		Temperature:    0,
		MaxTokens:      v.maxTokens,
		Timeout:        v.timeout,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	payload, err := decodePagePayload([]byte(stripJSONFences(result.Content)))
	if err != nil {
		return nil, fmt.Errorf("invalid vision response: %w", err)
	}
	return payload, nil
}

func (v *VisionExtractor) extractTwoStep(ctx context.Context, image []byte) (*pagePayload, error) {
	// Step 1: literal transcription from the image
	literal, err := v.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: visionLiteralPrompt, Images: [][]byte{image}},
		},
		Model:       v.model,
		Temperature: 0,
		MaxTokens:   v.maxTokens,
		Timeout:     v.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("literal transcription: %w", err)
	}
	transcript := strings.TrimSpace(literal.Content)
	if transcript == "" {
		return nil, fmt.Errorf("literal transcription returned empty text")
	}

	// Step 2: minimal structuring of the transcript (text-only call)
	structured, err := v.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: fmt.Sprintf(visionStructurePrompt, transcript)},
		},
		Model:          v.model,
		Temperature:    0,
		MaxTokens:      v.maxTokens,
		Timeout:        v.timeout,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("transcript structuring: %w", err)
	}

	payload, err := decodePagePayload([]byte(stripJSONFences(structured.Content)))
	if err != nil {
		// The literal transcript is still good text; salvage it rather than
		// failing the page.
		v.logger.Warn("structuring step returned invalid JSON, using raw transcript", "error", err)
		return &pagePayload{Title: "Page text", Text: transcript}, nil
	}
	return payload, nil
}

// decodePagePayload parses and structurally validates a payload.
func decodePagePayload(raw []byte) (*pagePayload, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if err := pagePayloadSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	var payload pagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("payload title is empty")
	}
	return &payload, nil
}

// renderPageText flattens a payload back into page text for combination.
func renderPageText(p *pagePayload) string {
	var b strings.Builder

	text := strings.TrimSpace(p.Text)
	if text != "" {
		b.WriteString(text)
	}

	// Structured fields carry content the text field may have omitted
	if text == "" && (len(p.Ingredients) > 0 || len(p.Instructions) > 0) {
		b.WriteString(strings.TrimSpace(p.Title))
		if len(p.Ingredients) > 0 {
			b.WriteString("\n\nIngredients:\n")
			b.WriteString(strings.Join(p.Ingredients, "\n"))
		}
		if len(p.Instructions) > 0 {
			b.WriteString("\n\nInstructions:\n")
			b.WriteString(strings.Join(p.Instructions, "\n"))
		}
	}

	return b.String()
}

// stripJSONFences removes markdown code fences some models wrap around JSON.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
