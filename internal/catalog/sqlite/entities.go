package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
)

// timeLayout is RFC3339Nano; sqlite has no native timestamp type so
// every row stores UTC strings in this layout.
const timeLayout = time.RFC3339Nano

func contentHash(e *catalog.Entity) string {
	h := sha256.New()
	h.Write(e.Manifest)
	fmt.Fprintf(h, "|%s|%s|%s|%s|%s|%s|%v|%v|%v|%f",
		e.Name, e.Summary, e.Description, e.Homepage, e.Publisher, e.License,
		e.Capabilities, e.Frameworks, e.Providers, e.QualityScore)
	return hex.EncodeToString(h.Sum(nil))
}

func marshalSet(s []string) string {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return string(b)
}

func unmarshalSet(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// UpsertEntity implements catalog.Store.
func (s *Store) UpsertEntity(ctx context.Context, e *catalog.Entity) (string, catalog.UpsertOutcome, error) {
	if !e.Type.Valid() {
		return "", "", apperrors.NewInvalidRequestError(fmt.Sprintf("unknown entity type %q", e.Type), nil)
	}
	e.ClampQualityScore()
	uid := e.UID()
	hash := contentHash(e)

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingHash string
	var createdAt string
	err = tx.QueryRowContext(ctx, `SELECT content_hash, created_at FROM entities WHERE uid = ?`, uid).
		Scan(&existingHash, &createdAt)

	now := time.Now().UTC().Format(timeLayout)
	outcome := catalog.Updated

	switch {
	case errors.Is(err, sql.ErrNoRows):
		outcome = catalog.Created
		createdAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (
				uid, type, id, version, name, summary, description, homepage, publisher, license,
				capabilities, frameworks, providers, manifest, content_hash, quality_score,
				created_at, updated_at, source_url, commit_hash, pending
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			uid, string(e.Type), e.ID, e.Version, e.Name, e.Summary, e.Description, e.Homepage, e.Publisher, e.License,
			marshalSet(e.Capabilities), marshalSet(e.Frameworks), marshalSet(e.Providers),
			string(e.Manifest), hash, e.QualityScore, createdAt, now, e.SourceURL, e.CommitHash, boolToInt(e.Pending),
		)
		if err != nil {
			return "", "", apperrors.NewIntegrityError("insert entity", err)
		}
	case err != nil:
		return "", "", apperrors.NewIntegrityError("lookup entity", err)
	default:
		if existingHash == hash {
			// Identical content: no-op except we still must commit to
			// release the lock we took; updated_at does not advance,
			// preserving the idempotence invariant (spec.md §8).
			if err := tx.Commit(); err != nil {
				return "", "", apperrors.NewIntegrityError("commit no-op upsert", err)
			}
			return uid, catalog.Updated, nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE entities SET
				name=?, summary=?, description=?, homepage=?, publisher=?, license=?,
				capabilities=?, frameworks=?, providers=?, manifest=?, content_hash=?,
				quality_score=?, updated_at=?, source_url=?, commit_hash=?, pending=?
			WHERE uid=?`,
			e.Name, e.Summary, e.Description, e.Homepage, e.Publisher, e.License,
			marshalSet(e.Capabilities), marshalSet(e.Frameworks), marshalSet(e.Providers),
			string(e.Manifest), hash, e.QualityScore, now, e.SourceURL, e.CommitHash, boolToInt(e.Pending), uid,
		)
		if err != nil {
			return "", "", apperrors.NewIntegrityError("update entity", err)
		}
	}

	if err := bumpWatermark(ctx, tx); err != nil {
		return "", "", err
	}
	if err := tx.Commit(); err != nil {
		return "", "", apperrors.NewIntegrityError("commit upsert", err)
	}
	return uid, outcome, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanEntity(row interface {
	Scan(dest ...any) error
}) (*catalog.Entity, error) {
	var e catalog.Entity
	var typ, caps, fws, provs, createdAt, updatedAt string
	var gatewayRegisteredAt, gatewayErr sql.NullString
	var pending int

	err := row.Scan(
		&typ, &e.ID, &e.Version, &e.Name, &e.Summary, &e.Description, &e.Homepage, &e.Publisher, &e.License,
		&caps, &fws, &provs, &e.Manifest, &e.QualityScore, &createdAt, &updatedAt,
		&gatewayRegisteredAt, &gatewayErr, &e.SourceURL, &e.CommitHash, &pending,
	)
	if err != nil {
		return nil, err
	}
	e.Type = catalog.EntityType(typ)
	e.Capabilities = unmarshalSet(caps)
	e.Frameworks = unmarshalSet(fws)
	e.Providers = unmarshalSet(provs)
	e.Pending = pending != 0
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	e.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if gatewayRegisteredAt.Valid {
		t, _ := time.Parse(timeLayout, gatewayRegisteredAt.String)
		e.GatewayRegisteredAt = &t
	}
	if gatewayErr.Valid {
		e.GatewayError = &gatewayErr.String
	}
	return &e, nil
}

const entityColumns = `type, id, version, name, summary, description, homepage, publisher, license,
	capabilities, frameworks, providers, manifest, quality_score, created_at, updated_at,
	gateway_registered_at, gateway_error, source_url, commit_hash, pending`

// Get implements catalog.Store.
func (s *Store) Get(ctx context.Context, uid string) (*catalog.Entity, error) {
	row := s.db.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE uid = ?`, uid)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("entity %q not found", uid), nil)
	}
	if err != nil {
		return nil, apperrors.NewIntegrityError("get entity", err)
	}
	return e, nil
}

// ListByType implements catalog.Store.
func (s *Store) ListByType(ctx context.Context, t catalog.EntityType, k, offset int) ([]*catalog.Entity, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE type = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		string(t), k, offset)
	if err != nil {
		return nil, apperrors.NewIntegrityError("list entities by type", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// ListEntities implements catalog.Store. Filtering beyond `type` is
// applied in Go (spec.md leaves filter predicates to the store, but
// sqlite has no native set-membership operator convenient for a
// dynamic capability set column).
func (s *Store) ListEntities(ctx context.Context, filters catalog.Filters) ([]*catalog.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities`
	var args []any
	if filters.Type != "" {
		query += ` WHERE type = ?`
		args = append(args, string(filters.Type))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewIntegrityError("list entities", err)
	}
	defer rows.Close()

	all, err := scanEntities(rows)
	if err != nil {
		return nil, err
	}
	out := make([]*catalog.Entity, 0, len(all))
	for _, e := range all {
		if filters.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func scanEntities(rows *sql.Rows) ([]*catalog.Entity, error) {
	var out []*catalog.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, apperrors.NewIntegrityError("scan entity", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewIntegrityError("iterate entities", err)
	}
	return out, nil
}

// MarkGatewayRegistered implements catalog.Store.
func (s *Store) MarkGatewayRegistered(ctx context.Context, uid string, ok bool, registrationErr string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewIntegrityError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if ok {
		now := time.Now().UTC().Format(timeLayout)
		_, err = tx.ExecContext(ctx,
			`UPDATE entities SET gateway_registered_at = ?, gateway_error = NULL, pending = 0 WHERE uid = ?`,
			now, uid)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE entities SET gateway_error = ? WHERE uid = ?`, registrationErr, uid)
	}
	if err != nil {
		return apperrors.NewIntegrityError("mark gateway registered", err)
	}
	if err := bumpWatermark(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewIntegrityError("commit gateway registration", err)
	}
	return nil
}
