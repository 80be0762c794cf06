// Package artifacts loads the pre-fit models the spoiler classifier depends on.
package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/comic-spoiler/spoiler-detector/internal/classifier"
	"github.com/comic-spoiler/spoiler-detector/internal/features"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/storage"
	"github.com/sirupsen/logrus"
)

// Artifact names inside a source.
const (
	VectorizerFile = "tfidf_vectorizer.json"
	EncoderFile    = "genre_encoder.json"
	ModelFile      = "xgboost_spoiler_classifier.json"
)

// ErrDimensionMismatch means the vectorizer and the classifier were not
// trained together.
var ErrDimensionMismatch = errors.New("artifact dimensions do not agree")

// Set holds the fitted artifacts. It is immutable once loaded.
type Set struct {
	Vectorizer *features.Vectorizer
	Encoder    *features.LabelEncoder
	Model      *classifier.Model
}

// Fuser returns a feature fuser over the loaded vectorizer and encoder.
func (s *Set) Fuser() *features.Fuser {
	return features.NewFuser(s.Vectorizer, s.Encoder)
}

// Load fetches and validates every artifact from source.
func Load(ctx context.Context, source storage.ArtifactSource) (*Set, error) {
	log := logger.WithField("source", source.Describe())

	fetch := func(name string) ([]byte, error) {
		data, err := source.Fetch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		log.WithFields(logrus.Fields{"artifact": name, "bytes": len(data)}).Debug("Fetched artifact")
		return data, nil
	}

	raw, err := fetch(VectorizerFile)
	if err != nil {
		return nil, err
	}
	vectorizer, err := features.ParseVectorizer(raw)
	if err != nil {
		return nil, err
	}

	if raw, err = fetch(EncoderFile); err != nil {
		return nil, err
	}
	encoder, err := features.ParseLabelEncoder(raw)
	if err != nil {
		return nil, err
	}

	if raw, err = fetch(ModelFile); err != nil {
		return nil, err
	}
	model, err := classifier.ParseModel(raw)
	if err != nil {
		return nil, err
	}

	set := &Set{Vectorizer: vectorizer, Encoder: encoder, Model: model}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"vocabulary":    vectorizer.Dim(),
		"genre_classes": len(encoder.Classes()),
		"num_feature":   model.NumFeature(),
		"num_class":     model.NumClass(),
	}).Info("Model artifacts loaded")
	return set, nil
}

// Validate checks that fused vectors will have the width the model expects.
func (s *Set) Validate() error {
	if want, got := s.Model.NumFeature(), s.Fuser().Dim(); want != got {
		return fmt.Errorf("%w: classifier expects %d features, fused vector has %d (2 + %d vocabulary terms)",
			ErrDimensionMismatch, want, got, s.Vectorizer.Dim())
	}
	return nil
}
