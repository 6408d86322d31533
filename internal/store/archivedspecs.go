package store

import (
	"context"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
)

// InsertArchivedSpec records an archived spec's prose content and enforces
// the per-repository retention limit in the same write lock, matching spec
// §4.A's requirement that pruning run atomically with its triggering insert.
func (s *Store) InsertArchivedSpec(ctx context.Context, spec ArchivedSpec) error {
	return s.withWrite(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO archived_specs (id, session_name, repository_path, repository_name, content, archived_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			spec.ID, spec.SessionName, spec.RepositoryPath, spec.RepositoryName, spec.Content, spec.ArchivedAt.UnixMilli(),
		)
		if err != nil {
			return apperrors.IoFailure("inserting archived spec", err)
		}
		return s.enforceArchiveLimitLocked(ctx, spec.RepositoryPath)
	})
}

// ListArchivedSpecs returns a repository's archived specs, newest first.
func (s *Store) ListArchivedSpecs(ctx context.Context, repositoryPath string) ([]ArchivedSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_name, repository_path, repository_name, content, archived_at
		FROM archived_specs WHERE repository_path = ? ORDER BY archived_at DESC`, repositoryPath)
	if err != nil {
		return nil, apperrors.IoFailure("listing archived specs", err)
	}
	defer rows.Close()

	var out []ArchivedSpec
	for rows.Next() {
		var spec ArchivedSpec
		var archivedAtMs int64
		if err := rows.Scan(&spec.ID, &spec.SessionName, &spec.RepositoryPath, &spec.RepositoryName,
			&spec.Content, &archivedAtMs); err != nil {
			return nil, apperrors.IoFailure("scanning archived spec", err)
		}
		spec.ArchivedAt = time.UnixMilli(archivedAtMs)
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.IoFailure("iterating archived specs", err)
	}
	return out, nil
}

// DeleteArchivedSpec removes a single archived spec by id.
func (s *Store) DeleteArchivedSpec(ctx context.Context, id string) error {
	return s.withWrite(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM archived_specs WHERE id = ?`, id)
		if err != nil {
			return apperrors.IoFailure("deleting archived spec", err)
		}
		return nil
	})
}

// EnforceArchiveLimit prunes the oldest archived specs for a repository down
// to the configured maximum. Exported for callers that archive outside of
// InsertArchivedSpec's own pruning (e.g. after lowering the configured cap).
func (s *Store) EnforceArchiveLimit(ctx context.Context, repositoryPath string) error {
	return s.withWrite(func() error {
		return s.enforceArchiveLimitLocked(ctx, repositoryPath)
	})
}

// enforceArchiveLimitLocked must only be called while writeMu is held.
func (s *Store) enforceArchiveLimitLocked(ctx context.Context, repositoryPath string) error {
	maxEntries := DefaultArchiveMaxEntries
	row := s.db.QueryRowContext(ctx, `SELECT archive_max_entries FROM app_config WHERE id = 1`)
	var configured int
	if err := row.Scan(&configured); err == nil {
		maxEntries = configured
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM archived_specs WHERE repository_path = ?`, repositoryPath,
	).Scan(&count); err != nil {
		return apperrors.IoFailure("counting archived specs", err)
	}

	if count <= maxEntries {
		return nil
	}
	toDelete := count - maxEntries

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM archived_specs WHERE id IN (
			SELECT id FROM archived_specs WHERE repository_path = ?
			ORDER BY archived_at ASC LIMIT ?
		)`, repositoryPath, toDelete,
	); err != nil {
		return apperrors.IoFailure("pruning archived specs", err)
	}
	return nil
}
