package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png" // register decoder

	"golang.org/x/image/draw"
)

const (
	// maxImageSide caps the longest image dimension sent to vision models,
	// bounding request size and peak memory per page.
	maxImageSide = 1568

	jpegQuality = 85
)

// BoundImage downscales an image so its longest side is at most maxImageSide
// and recompresses it as JPEG. Undecodable input is passed through unchanged
// so the provider can reject it with a real error.
func BoundImage(raw []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}

	if longest > maxImageSide {
		scale := float64(maxImageSide) / float64(longest)
		dw := int(float64(w)*scale + 0.5)
		dh := int(float64(h)*scale + 0.5)
		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return raw
	}
	return buf.Bytes()
}

// imageDimensions reports decoded pixel dimensions, for logging.
func imageDimensions(raw []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
