package strategy

import "math"

// EmbeddingDim is the fixed length of simulated embedding vectors.
const EmbeddingDim = 384

// Embed produces a deterministic embedding for the given text: a rune-code
// hash spread over a sine wave. Identical text always yields an identical
// vector, which keeps retrieval reproducible. This is a stand-in for a real
// embedding model, not an approximation of one.
func Embed(text string) []float64 {
	hash := 0
	for _, r := range text {
		hash += int(r)
	}

	vector := make([]float64, EmbeddingDim)
	for i := range vector {
		vector[i] = math.Sin(float64(hash+i)*0.1)*0.5 + 0.5
	}
	return vector
}

// CosineSimilarity returns the cosine of the angle between two equal-length
// vectors, or zero when either has no magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
