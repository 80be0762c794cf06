package characters

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	boxes []image.Rectangle
	err   error
	calls int
}

func (s *stubDetector) Detect(context.Context, image.Image) ([]image.Rectangle, error) {
	s.calls++
	return s.boxes, s.err
}

// stubEmbedder returns embeddings keyed by crop width so tests can steer
// which crops look alike.
type stubEmbedder struct {
	byWidth map[int][]float64
	sizes   []image.Rectangle
}

func (s *stubEmbedder) Embed(_ context.Context, face image.Image) ([]float64, error) {
	s.sizes = append(s.sizes, face.Bounds())
	vec, ok := s.byWidth[face.Bounds().Dx()]
	if !ok {
		return nil, errors.New("no face found")
	}
	return vec, nil
}

func TestCount_NilImage(t *testing.T) {
	det := &stubDetector{}
	got, err := New(det, &stubEmbedder{}, 0.5).Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Zero(t, det.calls)
}

func TestCount_ClustersEmbeddings(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	det := &stubDetector{boxes: []image.Rectangle{
		image.Rect(0, 0, 10, 10),   // hero
		image.Rect(50, 50, 60, 60), // hero again
		image.Rect(20, 20, 40, 40), // villain
		image.Rect(70, 0, 75, 5),   // no face
	}}
	emb := &stubEmbedder{byWidth: map[int][]float64{
		10: {1, 0, 0},
		20: {0, 1, 0},
	}}

	got, err := New(det, emb, 0.5).Count(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Len(t, emb.sizes, 4)
}

func TestCount_ClampsBoxesAndSkipsEmptyCrops(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	det := &stubDetector{boxes: []image.Rectangle{
		image.Rect(-10, -10, 20, 20), // clamps to 20x20
		image.Rect(60, 60, 80, 80),   // fully outside
		image.Rect(5, 5, 5, 30),      // zero width
	}}
	emb := &stubEmbedder{byWidth: map[int][]float64{20: {0.3, 0.4}}}

	got, err := New(det, emb, 0.5).Count(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	require.Len(t, emb.sizes, 1)
	assert.Equal(t, image.Rect(0, 0, 20, 20), emb.sizes[0])
}

func TestCount_NoEmbeddingsIsZero(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	det := &stubDetector{boxes: []image.Rectangle{image.Rect(0, 0, 7, 7)}}

	got, err := New(det, &stubEmbedder{}, 0.5).Count(context.Background(), img)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCount_DetectorErrorPropagates(t *testing.T) {
	cause := errors.New("detector offline")
	_, err := New(&stubDetector{err: cause}, &stubEmbedder{}, 0.5).
		Count(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorIs(t, err, cause)
}
