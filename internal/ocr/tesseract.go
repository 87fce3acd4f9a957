package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

const TesseractName = "tesseract"

// TesseractConfig holds settings for the Tesseract engine.
type TesseractConfig struct {
	Language string // Trained data language (default "eng")
	PSM      gosseract.PageSegMode
	DPI      int // user_defined_dpi hint; zero means unset
}

// TesseractEngine implements Engine using the gosseract client.
// A fresh client per call keeps recognition state isolated so concurrent
// page workers can share one engine.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	language      string
	psm           gosseract.PageSegMode
	dpi           int
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine(cfg TesseractConfig) *TesseractEngine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.PSM == 0 {
		cfg.PSM = gosseract.PSM_AUTO
	}
	return &TesseractEngine{
		clientFactory: gosseract.NewClient,
		language:      cfg.Language,
		psm:           cfg.PSM,
		dpi:           cfg.DPI,
	}
}

func (e *TesseractEngine) Name() string { return TesseractName }

// ExtractText performs OCR on a single page image. The recognition call is
// run on its own goroutine so a stuck call surfaces as a context error
// instead of hanging the worker.
func (e *TesseractEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type recognition struct {
		text string
		err  error
	}
	done := make(chan recognition, 1)

	go func() {
		text, err := e.recognize(image)
		done <- recognition{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", &EngineError{Engine: TesseractName, Err: r.err}
		}
		return r.text, nil
	}
}

func (e *TesseractEngine) recognize(image []byte) (string, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(e.psm); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
