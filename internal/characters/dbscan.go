package characters

// Noise is the cluster label of points without a dense neighbourhood.
const Noise = -1

// DistanceFunc measures the distance between two points.
type DistanceFunc func(a, b []float64) float64

// DBSCAN clusters points and returns one label per point, numbered from 0 in
// order of discovery, with Noise for points that belong to no cluster. A point
// q is a neighbour of p when dist(p, q) <= eps; p itself counts toward
// minSamples.
func DBSCAN(points [][]float64, eps float64, minSamples int, dist DistanceFunc) []int {
	const unvisited = -2

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(p int) []int {
		var out []int
		for q := range points {
			if dist(points[p], points[q]) <= eps {
				out = append(out, q)
			}
		}
		return out
	}

	cluster := 0
	for p := range points {
		if labels[p] != unvisited {
			continue
		}
		seeds := neighbours(p)
		if len(seeds) < minSamples {
			labels[p] = Noise
			continue
		}

		labels[p] = cluster
		for i := 0; i < len(seeds); i++ {
			q := seeds[i]
			if labels[q] == Noise {
				labels[q] = cluster
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			if more := neighbours(q); len(more) >= minSamples {
				seeds = append(seeds, more...)
			}
		}
		cluster++
	}
	return labels
}

// DistinctLabels counts the different labels, noise included as one label.
func DistinctLabels(labels []int) int {
	seen := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
