package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorizer(t *testing.T, spec VectorizerSpec) *Vectorizer {
	t.Helper()
	v, err := NewVectorizer(spec)
	require.NoError(t, err)
	return v
}

func assertVector(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestTransform_HandComputedL2(t *testing.T) {
	v := newTestVectorizer(t, VectorizerSpec{
		Vocabulary: map[string]int{"available": 0, "caption": 1, "hero": 2, "no": 3},
		IDF:        []float64{1.5, 2.0, 1.0, 3.0},
	})

	got := v.Transform("No caption available")
	norm := math.Sqrt(1.5*1.5 + 2*2 + 3*3)
	assertVector(t, []float64{1.5 / norm, 2 / norm, 0, 3 / norm}, got)
}

func TestTransform_Options(t *testing.T) {
	tests := []struct {
		name string
		spec VectorizerSpec
		doc  string
		want []float64
	}{
		{
			name: "sublinear tf without norm",
			spec: VectorizerSpec{
				Vocabulary:  map[string]int{"hero": 0},
				IDF:         []float64{2},
				Norm:        "none",
				SublinearTF: true,
			},
			doc:  "Hero hero HERO",
			want: []float64{2 * (1 + math.Log(3))},
		},
		{
			name: "unigrams and bigrams",
			spec: VectorizerSpec{
				Vocabulary: map[string]int{"the hero": 0, "hero": 1, "hero wins": 2},
				IDF:        []float64{1, 1, 1},
				NgramRange: [2]int{1, 2},
				Norm:       "none",
			},
			doc:  "The hero wins",
			want: []float64{1, 1, 1},
		},
		{
			name: "stop words removed before ngrams",
			spec: VectorizerSpec{
				Vocabulary: map[string]int{"the hero": 0, "hero wins": 1},
				IDF:        []float64{1, 1},
				NgramRange: [2]int{2, 2},
				Norm:       "none",
				StopWords:  []string{"the"},
			},
			doc:  "the hero wins",
			want: []float64{0, 1},
		},
		{
			name: "single characters are not tokens",
			spec: VectorizerSpec{
				Vocabulary: map[string]int{"hero": 0, "a": 1},
				IDF:        []float64{1, 1},
				Norm:       "l1",
			},
			doc:  "a b hero",
			want: []float64{1, 0},
		},
		{
			name: "python default pattern accepted",
			spec: VectorizerSpec{
				Vocabulary:   map[string]int{"café": 0},
				IDF:          []float64{1},
				TokenPattern: `(?u)\b\w\w+\b`,
			},
			doc:  "Café!",
			want: []float64{1},
		},
		{
			name: "out of vocabulary gives zero vector",
			spec: VectorizerSpec{
				Vocabulary: map[string]int{"hero": 0},
				IDF:        []float64{1},
			},
			doc:  "villain",
			want: []float64{0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertVector(t, tt.want, newTestVectorizer(t, tt.spec).Transform(tt.doc))
		})
	}
}

func TestParseVectorizer_Validation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad json", `{`},
		{"empty vocabulary", `{"vocabulary":{},"idf":[]}`},
		{"idf length", `{"vocabulary":{"a":0},"idf":[1,2]}`},
		{"index range", `{"vocabulary":{"ab":3},"idf":[1]}`},
		{"ngram range", `{"vocabulary":{"ab":0},"idf":[1],"ngram_range":[2,1]}`},
		{"norm", `{"vocabulary":{"ab":0},"idf":[1],"norm":"max"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVectorizer([]byte(tt.json))
			assert.Error(t, err)
		})
	}

	v, err := ParseVectorizer([]byte(`{"vocabulary":{"ab":0,"cd":1},"idf":[1,1],"ngram_range":[1,1],"norm":"l2","sublinear_tf":false}`))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Dim())
}
