// Package embedding turns natural-language query text into vectors for the
// semantic cache. Vectors are L2-normalized so cosine similarity reduces to
// a dot product.
package embedding

import (
	"context"
	"math"
	"strings"
)

// Provider generates embedding vectors for query text.
type Provider interface {
	// Embed returns the embedding for the given text. Input is normalized
	// (lowercased and trimmed) before embedding so trivially different
	// phrasings of the same question map to the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length this provider produces.
	Dimensions() int
	// Model returns the model identifier, used to keep cached vectors and
	// fresh vectors comparable.
	Model() string
}

// NormalizeInput canonicalizes query text before embedding.
func NormalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Normalize scales a vector to unit length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Cosine returns the cosine similarity of two vectors. Returns 0 when the
// lengths differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
