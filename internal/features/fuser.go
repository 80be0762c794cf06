package features

// Fuser concatenates [characterCount, genreCode, tfidf(caption)...].
type Fuser struct {
	vectorizer *Vectorizer
	encoder    *LabelEncoder
}

// NewFuser creates a Fuser from fitted artifacts.
func NewFuser(vectorizer *Vectorizer, encoder *LabelEncoder) *Fuser {
	return &Fuser{vectorizer: vectorizer, encoder: encoder}
}

// Dim is the length of the fused vector.
func (f *Fuser) Dim() int {
	return 2 + f.vectorizer.Dim()
}

// Fuse builds the classifier input for one panel.
func (f *Fuser) Fuse(characterCount int, genre, caption string) []float64 {
	vec := make([]float64, 0, f.Dim())
	vec = append(vec, float64(characterCount), float64(f.encoder.Encode(genre)))
	return append(vec, f.vectorizer.Transform(caption)...)
}
