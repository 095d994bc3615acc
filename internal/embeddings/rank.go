package embeddings

import (
	"sort"

	pgvector "github.com/pgvector/pgvector-go"
)

// Stored is a persisted fingerprint and the identifier of what it describes.
type Stored struct {
	OwnerID string
	Vector  Vector
}

// Ranked is one search hit.
type Ranked struct {
	OwnerID string  `json:"owner_id"`
	Score   float64 `json:"score"`
}

// Rank scores every stored vector against query with a linear scan and returns
// hits with a positive score, best first. Equal scores are ordered by OwnerID.
func Rank(query Vector, stored []Stored) []Ranked {
	results := make([]Ranked, 0, len(stored))
	for _, s := range stored {
		score := Similarity(s.Vector, query)
		if score <= 0 {
			continue
		}
		results = append(results, Ranked{OwnerID: s.OwnerID, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].OwnerID < results[j].OwnerID
	})
	return results
}

// ToPG converts v to the pgvector column type.
func ToPG(v Vector) pgvector.Vector {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return pgvector.NewVector(f)
}

// FromPG converts a stored pgvector value back to a Vector.
func FromPG(v pgvector.Vector) Vector {
	s := v.Slice()
	out := make(Vector, len(s))
	for i, x := range s {
		out[i] = float64(x)
	}
	return out
}
