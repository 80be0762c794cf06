// Package caption turns extracted panel text into a short summary.
package caption

import (
	"context"
	"errors"
	"strings"

	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/outcome"
)

const (
	// NoCaption is produced when there is no text to summarize.
	NoCaption = "No caption available"
	// CaptionError is produced when the summarizer fails.
	CaptionError = "Error generating caption"

	MinLength = 10
	MaxLength = 50
)

// ErrNoText marks the fallback taken for blank input.
var ErrNoText = errors.New("no text to summarize")

// Summarizer produces an abstractive summary with greedy decoding.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error)
}

// Generator wraps a Summarizer with the caption fallbacks.
type Generator struct {
	summarizer Summarizer
}

// New creates a Generator.
func New(summarizer Summarizer) *Generator {
	return &Generator{summarizer: summarizer}
}

// Generate always returns a caption. Outcome.Fallback is set when one of
// the sentinel captions was used.
func (g *Generator) Generate(ctx context.Context, text string) outcome.Outcome[string] {
	if strings.TrimSpace(text) == "" {
		return outcome.Fallback(NoCaption, ErrNoText)
	}

	summary, err := g.summarizer.Summarize(ctx, text, MinLength, MaxLength)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = errors.New("summarizer returned an empty summary")
	}
	if err != nil {
		logger.WithError(err).Warn("Caption generation failed")
		return outcome.Fallback(CaptionError, err)
	}
	return outcome.Success(strings.TrimSpace(summary))
}
