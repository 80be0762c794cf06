// Package genre assigns one of a fixed set of genres to panel text.
package genre

import (
	"context"
	"fmt"
	"strings"

	"github.com/arbovm/levenshtein"
)

// Unknown is returned for blank text or labels outside the closed set.
const Unknown = "Unknown"

// Labels is the closed set of genres the classifier may answer with.
var Labels = []string{
	"Sports", "Crime", "Action", "Fantasy", "Sci-Fi", "Romance",
	"Horror", "Comedy", "Drama", "Mystery", "Superhero",
}

// ZeroShot ranks candidate labels for a text, best first.
type ZeroShot interface {
	RankLabels(ctx context.Context, text string, candidates []string) ([]string, error)
}

// Classifier maps text to a genre label.
type Classifier struct {
	model       ZeroShot
	maxDistance int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFuzzyMatching canonicalises free-text answers to the nearest label when
// the edit distance is at most maxDistance. Used with generative backends.
func WithFuzzyMatching(maxDistance int) Option {
	return func(c *Classifier) {
		c.maxDistance = maxDistance
	}
}

// New creates a Classifier over model.
func New(model ZeroShot, opts ...Option) *Classifier {
	c := &Classifier{model: model, maxDistance: -1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the top label for text. Blank text returns Unknown without
// calling the model. Model errors are returned to the caller.
func (c *Classifier) Classify(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return Unknown, nil
	}

	ranked, err := c.model.RankLabels(ctx, text, Labels)
	if err != nil {
		return "", fmt.Errorf("genre classification: %w", err)
	}
	if len(ranked) == 0 {
		return Unknown, nil
	}
	return c.canonical(ranked[0]), nil
}

func (c *Classifier) canonical(label string) string {
	label = strings.TrimSpace(label)
	for _, l := range Labels {
		if l == label {
			return l
		}
	}
	if c.maxDistance < 0 {
		return Unknown
	}

	best, bestDist := Unknown, c.maxDistance+1
	lowered := strings.ToLower(label)
	for _, l := range Labels {
		if d := levenshtein.Distance(lowered, strings.ToLower(l)); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}
