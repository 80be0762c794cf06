// Package textextract reads the printed text of a comic panel with Tesseract.
package textextract

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/sirupsen/logrus"
)

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// Extractor converts panels to grayscale and runs them through an OCR engine.
type Extractor struct {
	engine Engine
}

// New creates an Extractor over engine.
func New(engine Engine) *Extractor {
	return &Extractor{engine: engine}
}

// Extract returns the trimmed text found in img. A nil image or any OCR
// failure yields the empty string.
func (e *Extractor) Extract(ctx context.Context, img image.Image) string {
	if img == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, toGray(img)); err != nil {
		logger.WithError(err).Warn("Failed to encode grayscale panel")
		return ""
	}

	text, err := e.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
			"bytes": buf.Len(),
		}).Warn("OCR failed, continuing with empty text")
		return ""
	}
	return strings.TrimSpace(text)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
