// Package embeddings produces deterministic document fingerprints and ranks them
// by cosine similarity.
package embeddings

import (
	"context"
	"math"
)

// Dimensions is the fixed fingerprint size.
const Dimensions = 12

// Vector is a fingerprint: either the zero vector or unit length.
type Vector []float64

// Provider generates text embeddings.
type Provider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) (Vector, error)

	// Name identifies the embedding strategy stored alongside each vector.
	Name() string
}

// Zero returns the all-zero vector.
func Zero() Vector {
	return make(Vector, Dimensions)
}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// IsZero reports whether every component of v is zero.
func IsZero(v Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Similarity is the cosine similarity of a and b. It is 0 when either vector has
// zero length or the dimensions differ.
func Similarity(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
