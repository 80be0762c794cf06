// Package pipeline runs one comic panel through text extraction, captioning,
// genre and character analysis, and the spoiler classifier.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/comic-spoiler/spoiler-detector/internal/classifier"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/outcome"
	"github.com/comic-spoiler/spoiler-detector/internal/storage"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrPipeline wraps any failure a stage does not absorb itself.
var ErrPipeline = errors.New("pipeline failed")

// ErrFeatureMismatch is re-exported for callers that only import pipeline.
var ErrFeatureMismatch = classifier.ErrFeatureMismatch

// TextExtractor reads panel text. It never fails; unreadable input gives "".
type TextExtractor interface {
	Extract(ctx context.Context, img image.Image) string
}

// CaptionGenerator summarizes text, falling back to sentinel captions.
type CaptionGenerator interface {
	Generate(ctx context.Context, text string) outcome.Outcome[string]
}

// GenreClassifier assigns a genre to text.
type GenreClassifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// CharacterCounter counts distinct characters in an image.
type CharacterCounter interface {
	Count(ctx context.Context, img image.Image) (int, error)
}

// FeatureFuser builds the classifier input.
type FeatureFuser interface {
	Fuse(characterCount int, genre, caption string) []float64
}

// SpoilerModel predicts a class index from a feature vector.
type SpoilerModel interface {
	Predict(features []float64) (int, error)
}

// Models are the loaded, immutable collaborators of a Pipeline.
type Models struct {
	Text       TextExtractor
	Caption    CaptionGenerator
	Genre      GenreClassifier
	Characters CharacterCounter
	Fuser      FeatureFuser
	Classifier SpoilerModel
	Labels     classifier.LabelTable
}

// Pipeline is stateless between runs and safe for concurrent use when its
// Models are.
type Pipeline struct {
	models Models
	decode func(path string) (image.Image, error)
}

// New creates a Pipeline. A nil label table uses classifier.DefaultLabels.
func New(m Models) *Pipeline {
	if m.Labels == nil {
		m.Labels = classifier.DefaultLabels
	}
	return &Pipeline{models: m, decode: storage.LoadImage}
}

// Run analyzes the image at imagePath. The caller owns and removes the file.
func (p *Pipeline) Run(ctx context.Context, imagePath string) (*models.PipelineResult, error) {
	start := time.Now()
	log := logger.WithField("image", imagePath)

	img, err := p.decode(imagePath)
	if err != nil {
		log.WithError(err).Warn("Image could not be decoded, continuing without pixels")
		img = nil
	}

	text := p.models.Text.Extract(ctx, img)

	caption := p.models.Caption.Generate(ctx, text)

	genre, err := p.models.Genre.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	count, err := p.models.Characters.Count(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	vector := p.models.Fuser.Fuse(count, genre, caption.Value)
	class, err := p.models.Classifier.Predict(vector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	result := &models.PipelineResult{
		Text:           text,
		Caption:        caption.Value,
		Genre:          genre,
		CharacterCount: count,
		Result:         p.models.Labels.Label(class),
	}

	log.WithFields(logrus.Fields{
		"text_length":      len(text),
		"caption_fallback": caption.Fallback,
		"genre":            genre,
		"character_count":  count,
		"class":            class,
		"result":           result.Result,
		"duration_ms":      time.Since(start).Milliseconds(),
	}).Info("Pipeline completed")

	return result, nil
}
