package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	_ "image/jpeg" // register decoder

	"golang.org/x/image/draw"
)

// minDimension is the floor below which a page image is upscaled before OCR.
const minDimension = 600

// Preprocessor normalizes page images for OCR. It never fails: any internal
// error returns the original image unmodified.
type Preprocessor struct {
	logger *slog.Logger
}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{logger: logger}
}

// Normalize runs the OCR normalization chain: grayscale, Gaussian denoise,
// histogram equalization, Otsu binarization, morphological close+open, and
// upscale when either dimension is under the minimum.
func (p *Preprocessor) Normalize(raw []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		p.logger.Warn("preprocess decode failed, using original image", "error", err)
		return raw
	}

	gray := toGray(img)
	gray = gaussianBlur(gray)
	gray = equalize(gray)
	gray = otsuBinarize(gray)
	gray = morphClose(gray)
	gray = morphOpen(gray)
	gray = upscaleIfSmall(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		p.logger.Warn("preprocess encode failed, using original image", "error", err)
		return raw
	}
	return buf.Bytes()
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// gaussianBlur applies a 3x3 Gaussian kernel (1-2-1 separable, /16).
func gaussianBlur(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	w, h := bounds.Dx(), bounds.Dy()

	kernel := [3][3]int{{1, 2, 1}, {2, 4, 2}, {1, 2, 1}}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sx, sy := clamp(x+kx, 0, w-1), clamp(y+ky, 0, h-1)
					sum += int(src.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy).Y) * kernel[ky+1][kx+1]
				}
			}
			dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: uint8(sum / 16)})
		}
	}
	return dst
}

// equalize applies global histogram equalization to stretch contrast.
func equalize(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return src
	}

	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}

	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(cum * 255 / total)
	}

	dst := image.NewGray(bounds)
	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// otsuBinarize thresholds the image using Otsu's method.
func otsuBinarize(src *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)
	if total == 0 {
		return src
	}

	sumAll := 0
	for i, count := range hist {
		sumAll += i * count
	}

	var (
		sumBg     int
		weightBg  int
		maxVar    float64
		threshold int
	)
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += t * hist[t]

		meanBg := float64(sumBg) / float64(weightBg)
		meanFg := float64(sumAll-sumBg) / float64(weightFg)
		diff := meanBg - meanFg
		betweenVar := float64(weightBg) * float64(weightFg) * diff * diff
		if betweenVar > maxVar {
			maxVar = betweenVar
			threshold = t
		}
	}

	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if int(v) > threshold {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

// morphClose runs dilate then erode with a 3x3 kernel, filling small holes
// inside strokes.
func morphClose(src *image.Gray) *image.Gray {
	return erode(dilate(src))
}

// morphOpen runs erode then dilate, removing speckle noise.
func morphOpen(src *image.Gray) *image.Gray {
	return dilate(erode(src))
}

func dilate(src *image.Gray) *image.Gray {
	return morphFilter(src, func(a, b uint8) bool { return a > b })
}

func erode(src *image.Gray) *image.Gray {
	return morphFilter(src, func(a, b uint8) bool { return a < b })
}

func morphFilter(src *image.Gray, better func(a, b uint8) bool) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	w, h := bounds.Dx(), bounds.Dy()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sx, sy := clamp(x+kx, 0, w-1), clamp(y+ky, 0, h-1)
					v := src.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy).Y
					if better(v, best) {
						best = v
					}
				}
			}
			dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: best})
		}
	}
	return dst
}

// upscaleIfSmall scales the image up when either dimension is below the
// minimum useful for OCR.
func upscaleIfSmall(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w >= minDimension && h >= minDimension {
		return src
	}
	if w == 0 || h == 0 {
		return src
	}

	scale := float64(minDimension) / float64(w)
	if s := float64(minDimension) / float64(h); s > scale {
		scale = s
	}

	dw, dh := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)
	dst := image.NewGray(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
