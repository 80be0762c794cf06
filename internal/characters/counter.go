// Package characters estimates how many distinct characters appear in a panel
// by detecting figures, embedding their faces and clustering the embeddings.
package characters

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	DefaultEps        = 0.5
	DefaultMinSamples = 1
)

// Detector finds candidate character boxes in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// Embedder maps a face crop to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, face image.Image) ([]float64, error)
}

// Counter counts distinct characters.
type Counter struct {
	detector   Detector
	embedder   Embedder
	eps        float64
	minSamples int
}

// New creates a Counter. A non-positive eps falls back to DefaultEps.
func New(detector Detector, embedder Embedder, eps float64) *Counter {
	if eps <= 0 {
		eps = DefaultEps
	}
	return &Counter{
		detector:   detector,
		embedder:   embedder,
		eps:        eps,
		minSamples: DefaultMinSamples,
	}
}

// Count returns the number of distinct characters in img. A nil image counts
// zero characters. Detector failures are returned; embedding failures only
// drop the affected crop.
func (c *Counter) Count(ctx context.Context, img image.Image) (int, error) {
	if img == nil {
		return 0, nil
	}

	boxes, err := c.detector.Detect(ctx, img)
	if err != nil {
		return 0, fmt.Errorf("character detection: %w", err)
	}

	bounds := img.Bounds()
	embeddings := make([][]float64, 0, len(boxes))
	for i, box := range boxes {
		crop := box.Intersect(bounds)
		if crop.Empty() {
			continue
		}

		vec, err := c.embedder.Embed(ctx, cropImage(img, crop))
		if err != nil {
			logger.WithFields(logrus.Fields{
				"box":   i,
				"error": err.Error(),
			}).Debug("Skipping crop without face embedding")
			continue
		}
		if len(vec) == 0 {
			continue
		}
		embeddings = append(embeddings, vec)
	}

	if len(embeddings) == 0 {
		return 0, nil
	}

	labels := DBSCAN(embeddings, c.eps, c.minSamples, CosineDistance)
	return DistinctLabels(labels), nil
}

func cropImage(img image.Image, r image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
