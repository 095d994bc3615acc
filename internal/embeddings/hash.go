package embeddings

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
	"unicode"
)

// HashStrategy names the hash-and-sine construction in stored vectors.
const HashStrategy = "hash-v1"

// HashProvider generates embeddings by hashing tokens into a fixed-size vector.
// It is deterministic and not semantically meaningful beyond shared tokens.
type HashProvider struct{}

// NewHashProvider creates a new HashProvider.
func NewHashProvider() *HashProvider {
	return &HashProvider{}
}

// Name returns the strategy name.
func (p *HashProvider) Name() string {
	return HashStrategy
}

// Embed never fails; the error is part of the Provider contract.
func (p *HashProvider) Embed(_ context.Context, text string) (Vector, error) {
	return Embed(text), nil
}

// Embed fingerprints text. Each token's SHA-256 digest contributes
// sin(byte/255*pi) to each of the first Dimensions components; the sum is then
// L2 normalized. Text without tokens yields the zero vector.
func Embed(text string) Vector {
	vec := Zero()
	for _, token := range tokenize(text) {
		digest := sha256.Sum256([]byte(token))
		for i := 0; i < Dimensions; i++ {
			raw := float64(digest[i]) / 255.0
			vec[i] += math.Sin(raw * math.Pi)
		}
	}

	norm := Norm(vec)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// tokenize lowercases, splits on whitespace and keeps only letters and digits
// of each token.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, f)
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}
