// Package ocr provides traditional OCR extraction and image normalization
// for scanned cookbook pages.
package ocr

import (
	"context"
	"fmt"
)

// Engine is the traditional OCR contract: one normalized page image in,
// raw text out. Implementations must be deterministic for a given image.
type Engine interface {
	Name() string
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// EngineError wraps an OCR engine failure with its original cause.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
