package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MediaObject is an uploaded source document.
type MediaObject struct {
	ID          uuid.UUID  `json:"id"`
	LLCID       *uuid.UUID `json:"llc_id,omitempty"`
	MediaType   string     `json:"media_type"`
	Mime        string     `json:"mime"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storage_path"`
	SHA256      string     `json:"sha256"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DocumentVector is the stored fingerprint of a media object.
type DocumentVector struct {
	ID            uuid.UUID       `json:"id"`
	MediaObjectID uuid.UUID       `json:"media_object_id"`
	Vector        pgvector.Vector `json:"-"`
	Strategy      string          `json:"embedding_strategy"`
	CreatedAt     time.Time       `json:"created_at"`
}

const mediaColumns = `id, llc_id, media_type, mime, filename, storage_path, sha256, created_at`

func scanMedia(row interface{ Scan(...any) error }, m *MediaObject) error {
	return row.Scan(&m.ID, &m.LLCID, &m.MediaType, &m.Mime, &m.Filename, &m.StoragePath, &m.SHA256, &m.CreatedAt)
}

// CreateMediaObject inserts m and fills its generated fields.
func (r *Repo) CreateMediaObject(ctx context.Context, m *MediaObject) error {
	if m.MediaType == "" {
		m.MediaType = "document"
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO media_objects (llc_id, media_type, mime, filename, storage_path, sha256)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.LLCID, m.MediaType, m.Mime, m.Filename, m.StoragePath, m.SHA256).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create media object: %w", err)
	}
	return nil
}

// GetMediaObject fetches a media object by id.
func (r *Repo) GetMediaObject(ctx context.Context, id uuid.UUID) (*MediaObject, error) {
	m := &MediaObject{}
	row := r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_objects WHERE id = $1`, id)
	if err := scanMedia(row, m); err != nil {
		return nil, notFound(err, fmt.Sprintf("get media object %s", id))
	}
	return m, nil
}

// UpsertDocumentVector stores the fingerprint for a media object, replacing any
// previous vector of the same strategy.
func (r *Repo) UpsertDocumentVector(ctx context.Context, v *DocumentVector) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO document_vectors (media_object_id, vector, embedding_strategy)
		VALUES ($1, $2, $3)
		ON CONFLICT (media_object_id, embedding_strategy) DO UPDATE SET
			vector = EXCLUDED.vector,
			created_at = now()
		RETURNING id, created_at
	`, v.MediaObjectID, v.Vector, v.Strategy).Scan(&v.ID, &v.CreatedAt)
}

// ListDocumentVectors returns every stored vector of the given strategy.
func (r *Repo) ListDocumentVectors(ctx context.Context, strategy string) ([]DocumentVector, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, media_object_id, vector, embedding_strategy, created_at
		FROM document_vectors WHERE embedding_strategy = $1
	`, strategy)
	if err != nil {
		return nil, fmt.Errorf("list document vectors: %w", err)
	}
	defer rows.Close()

	var out []DocumentVector
	for rows.Next() {
		var v DocumentVector
		if err := rows.Scan(&v.ID, &v.MediaObjectID, &v.Vector, &v.Strategy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document vector: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MediaWithoutVectors returns media objects that have no vector for strategy yet.
// Objects never attempted come first, then those whose last failed attempt is
// oldest, so a document that cannot be indexed does not hold up the rest.
func (r *Repo) MediaWithoutVectors(ctx context.Context, strategy string, limit int) ([]MediaObject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.llc_id, m.media_type, m.mime, m.filename, m.storage_path, m.sha256, m.created_at
		FROM media_objects m
		LEFT JOIN document_vectors v ON v.media_object_id = m.id AND v.embedding_strategy = $1
		WHERE v.id IS NULL
		ORDER BY m.reindex_attempted_at NULLS FIRST, m.created_at, m.id
		LIMIT $2
	`, strategy, clampLimit(limit, 100, 1000))
	if err != nil {
		return nil, fmt.Errorf("media without vectors: %w", err)
	}
	defer rows.Close()

	var out []MediaObject
	for rows.Next() {
		var m MediaObject
		if err := scanMedia(rows, &m); err != nil {
			return nil, fmt.Errorf("scan media object: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkReindexAttempt records a failed attempt to index a media object.
func (r *Repo) MarkReindexAttempt(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `UPDATE media_objects SET reindex_attempted_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark reindex attempt %s: %w", id, err)
	}
	return nil
}
