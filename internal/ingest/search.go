package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/embeddings"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

// ExcerptLength is the number of characters of a document shown in search hits.
const ExcerptLength = 160

// SearchResult is one ranked document.
type SearchResult struct {
	MediaObjectID uuid.UUID `json:"media_object_id"`
	Score         float64   `json:"score"`
	Excerpt       string    `json:"excerpt"`
	Filename      string    `json:"filename,omitempty"`
	Mime          string    `json:"mime,omitempty"`
}

// Search fingerprints query and ranks every stored document against it. Only
// positive scores are returned, best first. limit <= 0 means no limit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vectors, err := s.store.ListDocumentVectors(ctx, s.embedder.Name())
	if err != nil {
		return nil, err
	}

	stored := make([]embeddings.Stored, len(vectors))
	for i, v := range vectors {
		stored[i] = embeddings.Stored{OwnerID: v.MediaObjectID.String(), Vector: embeddings.FromPG(v.Vector)}
	}

	ranked := embeddings.Rank(q, stored)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		id, err := uuid.Parse(r.OwnerID)
		if err != nil {
			continue
		}
		res := SearchResult{MediaObjectID: id, Score: r.Score}

		m, err := s.store.GetMediaObject(ctx, id)
		if err != nil {
			s.logger.Warn("search hit without media object", "media_object_id", id, "error", err)
		} else {
			res.Filename = m.Filename
			res.Mime = m.Mime
			res.Excerpt = s.excerpt(m)
		}
		results = append(results, res)
	}
	return results, nil
}

// excerpt returns the first characters of a document, or "" when it cannot be read.
func (s *Service) excerpt(m *store.MediaObject) string {
	data, err := s.docs.Read(m.StoragePath)
	if err != nil {
		s.logger.Debug("excerpt unavailable", "media_object_id", m.ID, "error", err)
		return ""
	}
	runes := []rune(decodeText(data))
	if len(runes) > ExcerptLength {
		runes = runes[:ExcerptLength]
	}
	return string(runes)
}

// Reindex fingerprints up to batch documents that have no vector for the
// current strategy. It returns how many were indexed. Unreadable documents are
// skipped and left for a later pass.
func (s *Service) Reindex(ctx context.Context, batch int) (int, error) {
	pending, err := s.store.MediaWithoutVectors(ctx, s.embedder.Name(), batch)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, m := range pending {
		if ctx.Err() != nil {
			return indexed, ctx.Err()
		}
		data, err := s.docs.Read(m.StoragePath)
		if err != nil {
			s.logger.Warn("reindex: document unreadable", "media_object_id", m.ID, "error", err)
			s.markReindexAttempt(ctx, m.ID)
			continue
		}
		vec, err := s.embedder.Embed(ctx, decodeText(data))
		if err != nil {
			s.logger.Warn("reindex: embed failed", "media_object_id", m.ID, "error", err)
			s.markReindexAttempt(ctx, m.ID)
			continue
		}
		if err := s.store.UpsertDocumentVector(ctx, &store.DocumentVector{
			MediaObjectID: m.ID,
			Vector:        embeddings.ToPG(vec),
			Strategy:      s.embedder.Name(),
		}); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// markReindexAttempt moves a failed object behind the rest of the backlog.
func (s *Service) markReindexAttempt(ctx context.Context, id uuid.UUID) {
	if err := s.store.MarkReindexAttempt(ctx, id); err != nil {
		s.logger.Warn("reindex: recording attempt failed", "media_object_id", id, "error", err)
	}
}
