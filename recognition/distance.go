package recognition

import "math"

// DistanceFunc returns how far apart two embeddings are; smaller is closer.
type DistanceFunc func(a, b []float32) float64

// EuclideanDistance is the L2 distance, the native metric of dlib-style
// 128-d face encodings. Vectors of different length are infinitely far apart.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// CosineDistance is 1 - cosine similarity, in [0, 2]. Used for ArcFace-style
// normalized embeddings.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// clamp floating point drift
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// DistanceForMetric maps a configured metric name to its function.
// Unknown names fall back to Euclidean.
func DistanceForMetric(metric string) DistanceFunc {
	if metric == "cosine" {
		return CosineDistance
	}
	return EuclideanDistance
}
