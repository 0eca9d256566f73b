package sqlite

import (
	"context"
	"encoding/json"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// ReplaceChunks implements catalog.Store. It deletes and re-inserts
// every chunk owned by uid within a single transaction, matching
// spec.md §3's "deleted when the Entity's manifest changes materially
// (re-chunked)" lifecycle.
func (s *Store) ReplaceChunks(ctx context.Context, uid string, chunks []catalog.EmbeddingChunk) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_chunks WHERE entity_uid = ?`, uid); err != nil {
		return apperrors.NewIntegrityError("delete chunks", err)
	}

	for _, c := range chunks {
		vecJSON, err := json.Marshal(c.Vector)
		if err != nil {
			return apperrors.NewInvalidRequestError("marshal chunk vector", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO embedding_chunks (entity_uid, chunk_ordinal, text, vector, source) VALUES (?,?,?,?,?)`,
			uid, c.ChunkOrdinal, c.Text, string(vecJSON), string(c.Source))
		if err != nil {
			return apperrors.NewIntegrityError("insert chunk", err)
		}
	}

	if err := bumpWatermark(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Chunks implements catalog.Store.
func (s *Store) Chunks(ctx context.Context, uid string) ([]catalog.EmbeddingChunk, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT entity_uid, chunk_ordinal, text, vector, source FROM embedding_chunks
		 WHERE entity_uid = ? ORDER BY chunk_ordinal`, uid)
	if err != nil {
		return nil, apperrors.NewIntegrityError("list chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// AllChunks implements catalog.Store.
func (s *Store) AllChunks(ctx context.Context, filters catalog.Filters) ([]catalog.EmbeddingChunk, error) {
	entities, err := s.ListEntities(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	uids := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		uids[e.UID()] = struct{}{}
	}

	rows, err := s.db.db.QueryContext(ctx,
		`SELECT entity_uid, chunk_ordinal, text, vector, source FROM embedding_chunks ORDER BY entity_uid, chunk_ordinal`)
	if err != nil {
		return nil, apperrors.NewIntegrityError("list all chunks", err)
	}
	defer rows.Close()

	all, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.EmbeddingChunk, 0, len(all))
	for _, c := range all {
		if _, ok := uids[c.EntityUID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func scanChunks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]catalog.EmbeddingChunk, error) {
	var out []catalog.EmbeddingChunk
	for rows.Next() {
		var c catalog.EmbeddingChunk
		var vecJSON, source string
		if err := rows.Scan(&c.EntityUID, &c.ChunkOrdinal, &c.Text, &vecJSON, &source); err != nil {
			return nil, apperrors.NewIntegrityError("scan chunk", err)
		}
		if err := json.Unmarshal([]byte(vecJSON), &c.Vector); err != nil {
			return nil, apperrors.NewIntegrityError("unmarshal chunk vector", err)
		}
		c.Source = catalog.ChunkSource(source)
		out = append(out, c)
	}
	return out, rows.Err()
}
