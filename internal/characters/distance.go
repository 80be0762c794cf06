package characters

import "gonum.org/v1/gonum/floats"

// CosineDistance returns 1 - cos(a, b). A zero-norm vector is at distance 1
// from everything. Vectors of different length are compared over their
// common prefix.
func CosineDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]

	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 1
	}

	sim := floats.Dot(a, b) / (normA * normB)
	return 1 - max(-1, min(1, sim))
}
