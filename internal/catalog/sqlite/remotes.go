package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// UpsertRemote implements catalog.Store.
func (s *Store) UpsertRemote(ctx context.Context, url string) (*catalog.Remote, error) {
	if url == "" {
		return nil, apperrors.NewInvalidRequestError("remote url must not be empty", nil)
	}
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO remotes (url) VALUES (?) ON CONFLICT (url) DO NOTHING`, url)
	if err != nil {
		return nil, apperrors.NewIntegrityError("upsert remote", err)
	}
	if err := bumpWatermark(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewIntegrityError("commit remote upsert", err)
	}
	return s.getRemote(ctx, url)
}

// RemoveRemote implements catalog.Store.
func (s *Store) RemoveRemote(ctx context.Context, url string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM remotes WHERE url = ?`, url)
	if err != nil {
		return apperrors.NewIntegrityError("remove remote", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("remote %q not found", url), nil)
	}
	if err := bumpWatermark(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ListRemotes implements catalog.Store.
func (s *Store) ListRemotes(ctx context.Context) ([]*catalog.Remote, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT url, last_fetched_at, last_etag, last_status, last_error FROM remotes ORDER BY url`)
	if err != nil {
		return nil, apperrors.NewIntegrityError("list remotes", err)
	}
	defer rows.Close()

	var out []*catalog.Remote
	for rows.Next() {
		r, err := scanRemote(rows)
		if err != nil {
			return nil, apperrors.NewIntegrityError("scan remote", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordRemotePoll implements catalog.Store.
func (s *Store) RecordRemotePoll(ctx context.Context, url string, status catalog.RemoteStatus, etag, pollErr string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx,
		`UPDATE remotes SET last_fetched_at = ?, last_etag = ?, last_status = ?, last_error = ? WHERE url = ?`,
		now, etag, string(status), pollErr, url)
	if err != nil {
		return apperrors.NewIntegrityError("record remote poll", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("remote %q not found", url), nil)
	}
	if err := bumpWatermark(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) getRemote(ctx context.Context, url string) (*catalog.Remote, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT url, last_fetched_at, last_etag, last_status, last_error FROM remotes WHERE url = ?`, url)
	r, err := scanRemote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("remote %q not found", url), nil)
	}
	if err != nil {
		return nil, apperrors.NewIntegrityError("get remote", err)
	}
	return r, nil
}

func scanRemote(row interface{ Scan(dest ...any) error }) (*catalog.Remote, error) {
	var r catalog.Remote
	var lastFetched sql.NullString
	var status string
	if err := row.Scan(&r.URL, &lastFetched, &r.LastETag, &status, &r.LastError); err != nil {
		return nil, err
	}
	r.LastStatus = catalog.RemoteStatus(status)
	if lastFetched.Valid {
		t, _ := time.Parse(timeLayout, lastFetched.String)
		r.LastFetchedAt = &t
	}
	return &r, nil
}
