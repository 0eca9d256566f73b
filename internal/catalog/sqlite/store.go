package sqlite

import (
	"context"
	"database/sql"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// Store implements catalog.Store on top of a *DB.
type Store struct {
	db *DB
}

// NewStore wraps an already-opened *DB as a catalog.Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Close implements catalog.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// bumpWatermark increments the single-row store_watermark counter
// within tx; every write transaction calls this exactly once, which
// is what lets the search ETag cache invalidate on any write
// (spec.md §4.D / §5).
func bumpWatermark(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `UPDATE store_watermark SET value = value + 1 WHERE id = 1`); err != nil {
		return apperrors.NewIntegrityError("bump watermark", err)
	}
	return nil
}

// Watermark implements catalog.Store.
func (s *Store) Watermark(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.db.QueryRowContext(ctx, `SELECT value FROM store_watermark WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, apperrors.NewIntegrityError("read watermark", err)
	}
	return v, nil
}
