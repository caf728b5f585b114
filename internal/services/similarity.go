package services

import "math"

// CosineSimilarity computes the cosine similarity of two embedding
// vectors. Mismatched or zero lengths and zero-magnitude vectors all
// yield 0 rather than an error: a vector that cannot be compared is
// simply not a match.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
