// Package features builds the numeric feature vector fed to the spoiler
// classifier from the outputs of the pipeline stages.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// defaultTokenPattern matches runs of two or more word characters, the
// Unicode-aware equivalent of \b\w\w+\b.
const defaultTokenPattern = `[\p{L}\p{N}_]{2,}`

// pythonDefaultTokenPattern is how fitted vectorizers serialise the default.
const pythonDefaultTokenPattern = `(?u)\b\w\w+\b`

// VectorizerSpec is the on-disk form of a fitted TF-IDF vectorizer.
type VectorizerSpec struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Lowercase    *bool          `json:"lowercase,omitempty"`
	NgramRange   [2]int         `json:"ngram_range"`
	Norm         string         `json:"norm"`
	SublinearTF  bool           `json:"sublinear_tf"`
	StopWords    []string       `json:"stop_words,omitempty"`
	TokenPattern string         `json:"token_pattern,omitempty"`
}

// Vectorizer applies a fitted TF-IDF transform to single documents.
// It is immutable after construction and safe for concurrent use.
type Vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	lowercase   bool
	minN, maxN  int
	norm        string
	sublinearTF bool
	stopWords   map[string]struct{}
	tokenRe     *regexp.Regexp
}

// ParseVectorizer decodes and validates a serialized vectorizer.
func ParseVectorizer(data []byte) (*Vectorizer, error) {
	var spec VectorizerSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode tfidf vectorizer: %w", err)
	}
	return NewVectorizer(spec)
}

// NewVectorizer validates spec and builds a Vectorizer.
func NewVectorizer(spec VectorizerSpec) (*Vectorizer, error) {
	if len(spec.Vocabulary) == 0 {
		return nil, fmt.Errorf("tfidf vectorizer has an empty vocabulary")
	}
	if len(spec.IDF) != len(spec.Vocabulary) {
		return nil, fmt.Errorf("tfidf vectorizer: %d idf weights for %d terms", len(spec.IDF), len(spec.Vocabulary))
	}
	for term, idx := range spec.Vocabulary {
		if idx < 0 || idx >= len(spec.IDF) {
			return nil, fmt.Errorf("tfidf vectorizer: term %q has out of range index %d", term, idx)
		}
	}

	minN, maxN := spec.NgramRange[0], spec.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("tfidf vectorizer: invalid ngram_range %v", spec.NgramRange)
	}

	switch spec.Norm {
	case "":
		spec.Norm = "l2"
	case "l1", "l2", "none":
	default:
		return nil, fmt.Errorf("tfidf vectorizer: unsupported norm %q", spec.Norm)
	}

	pattern := spec.TokenPattern
	if pattern == "" || pattern == pythonDefaultTokenPattern {
		pattern = defaultTokenPattern
	}
	tokenRe, err := regexp.Compile(strings.TrimPrefix(pattern, "(?u)"))
	if err != nil {
		return nil, fmt.Errorf("tfidf vectorizer: token pattern: %w", err)
	}

	stop := make(map[string]struct{}, len(spec.StopWords))
	for _, w := range spec.StopWords {
		stop[w] = struct{}{}
	}

	lowercase := true
	if spec.Lowercase != nil {
		lowercase = *spec.Lowercase
	}

	return &Vectorizer{
		vocabulary:  spec.Vocabulary,
		idf:         spec.IDF,
		lowercase:   lowercase,
		minN:        minN,
		maxN:        maxN,
		norm:        spec.Norm,
		sublinearTF: spec.SublinearTF,
		stopWords:   stop,
		tokenRe:     tokenRe,
	}, nil
}

// Dim is the length of the vectors produced by Transform.
func (v *Vectorizer) Dim() int {
	return len(v.idf)
}

// Transform returns the dense TF-IDF vector of doc.
func (v *Vectorizer) Transform(doc string) []float64 {
	out := make([]float64, len(v.idf))
	for _, term := range v.analyze(doc) {
		if idx, ok := v.vocabulary[term]; ok {
			out[idx]++
		}
	}

	for i, tf := range out {
		if tf == 0 {
			continue
		}
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		out[i] = tf * v.idf[i]
	}

	normalize(out, v.norm)
	return out
}

// analyze splits doc into the terms counted by the vectorizer.
func (v *Vectorizer) analyze(doc string) []string {
	if v.lowercase {
		doc = strings.ToLower(doc)
	}

	raw := v.tokenRe.FindAllString(doc, -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := v.stopWords[t]; !stop {
			tokens = append(tokens, t)
		}
	}

	if v.maxN == 1 {
		return tokens
	}

	var terms []string
	if v.minN == 1 {
		terms = append(terms, tokens...)
	}
	for n := max(v.minN, 2); n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func normalize(vec []float64, norm string) {
	var total float64
	switch norm {
	case "l2":
		total = floats.Norm(vec, 2)
	case "l1":
		total = floats.Norm(vec, 1)
	default:
		return
	}
	if total == 0 {
		return
	}
	floats.Scale(1/total, vec)
}
