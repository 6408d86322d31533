package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
)

// CreateSession inserts a new session row. Fails with a Conflict error if
// (repository_path, name) already exists, per spec §4.A.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	return s.withWrite(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (
				id, name, display_name, version_group_id, version_number,
				repository_path, repository_name, branch, parent_branch, worktree_path,
				status, session_state, ready_to_merge, created_at, updated_at, last_activity,
				initial_prompt, original_agent_type, original_skip_permissions,
				pending_name_generation, was_auto_generated, spec_content, resume_allowed
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.Name, nullableString(sess.DisplayName), nullableString(sess.VersionGroupID), sess.VersionNumber,
			sess.RepositoryPath, sess.RepositoryName, sess.Branch, sess.ParentBranch, sess.WorktreePath,
			string(sess.Status), string(sess.SessionState), sess.ReadyToMerge,
			sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(), nullableTimeMillis(sess.LastActivity),
			nullableString(sess.InitialPrompt), nullableString(sess.OriginalAgentType), sess.OriginalSkipPermissions,
			sess.PendingNameGeneration, sess.WasAutoGenerated, nullableString(sess.SpecContent), sess.ResumeAllowed,
		)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return apperrors.Conflict("session already exists in this repository", err)
			}
			return apperrors.IoFailure("inserting session", err)
		}
		return nil
	})
}

// UpdateSession overwrites every mutable field of an existing session row,
// matched by id.
func (s *Store) UpdateSession(ctx context.Context, sess Session) error {
	return s.withWrite(func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE sessions SET
				name = ?, display_name = ?, version_group_id = ?, version_number = ?,
				repository_path = ?, repository_name = ?, branch = ?, parent_branch = ?, worktree_path = ?,
				status = ?, session_state = ?, ready_to_merge = ?, updated_at = ?, last_activity = ?,
				initial_prompt = ?, original_agent_type = ?, original_skip_permissions = ?,
				pending_name_generation = ?, was_auto_generated = ?, spec_content = ?, resume_allowed = ?
			WHERE id = ?`,
			sess.Name, nullableString(sess.DisplayName), nullableString(sess.VersionGroupID), sess.VersionNumber,
			sess.RepositoryPath, sess.RepositoryName, sess.Branch, sess.ParentBranch, sess.WorktreePath,
			string(sess.Status), string(sess.SessionState), sess.ReadyToMerge,
			sess.UpdatedAt.UnixMilli(), nullableTimeMillis(sess.LastActivity),
			nullableString(sess.InitialPrompt), nullableString(sess.OriginalAgentType), sess.OriginalSkipPermissions,
			sess.PendingNameGeneration, sess.WasAutoGenerated, nullableString(sess.SpecContent), sess.ResumeAllowed,
			sess.ID,
		)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return apperrors.Conflict("session name already in use in this repository", err)
			}
			return apperrors.IoFailure("updating session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperrors.IoFailure("checking rows affected", err)
		}
		if n == 0 {
			return apperrors.NotFound("session not found", nil)
		}
		return nil
	})
}

const sessionColumns = `
	id, name, display_name, version_group_id, version_number,
	repository_path, repository_name, branch, parent_branch, worktree_path,
	status, session_state, ready_to_merge, created_at, updated_at, last_activity,
	initial_prompt, original_agent_type, original_skip_permissions,
	pending_name_generation, was_auto_generated, spec_content, resume_allowed`

// normalizeSessionState treats the legacy "draft" spelling as a synonym for
// "spec" when scanning rows written by an older schema, per the standing
// decision to read both spellings but always write "spec".
func normalizeSessionState(raw string) SessionState {
	if raw == "draft" {
		return StateSpec
	}
	return SessionState(raw)
}

// GetSessionByName looks up a session by its unique (repository, name) key.
func (s *Store) GetSessionByName(ctx context.Context, repositoryPath, name string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+sessionColumns+` FROM sessions WHERE repository_path = ? AND name = ?`,
		repositoryPath, name)

	sess, err := scanSessionRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Session{}, apperrors.NotFound("session not found", nil)
		}
		return Session{}, apperrors.IoFailure("scanning session", err)
	}
	return sess, nil
}

// scanSessionRow is the single row-scanning implementation shared by
// GetSessionByName, GetSessionByID, and ListSessions; it correctly reads the
// integer-millisecond created_at/updated_at columns into time.Time.
func scanSessionRow(row interface {
	Scan(dest ...any) error
}) (Session, error) {
	var sess Session
	var displayName, versionGroupID, initialPrompt, originalAgentType, specContent sql.NullString
	var versionNumber sql.NullInt64
	var createdAtMs, updatedAtMs int64
	var lastActivityMs sql.NullInt64
	var originalSkipPermissions sql.NullBool
	var status, sessionState string

	err := row.Scan(
		&sess.ID, &sess.Name, &displayName, &versionGroupID, &versionNumber,
		&sess.RepositoryPath, &sess.RepositoryName, &sess.Branch, &sess.ParentBranch, &sess.WorktreePath,
		&status, &sessionState, &sess.ReadyToMerge, &createdAtMs, &updatedAtMs, &lastActivityMs,
		&initialPrompt, &originalAgentType, &originalSkipPermissions,
		&sess.PendingNameGeneration, &sess.WasAutoGenerated, &specContent, &sess.ResumeAllowed,
	)
	if err != nil {
		return Session{}, err
	}

	sess.Status = SessionStatus(status)
	sess.SessionState = normalizeSessionState(sessionState)
	sess.DisplayName = displayName.String
	sess.VersionGroupID = versionGroupID.String
	if versionNumber.Valid {
		sess.VersionNumber = int(versionNumber.Int64)
	}
	sess.InitialPrompt = initialPrompt.String
	sess.OriginalAgentType = originalAgentType.String
	sess.OriginalSkipPermissions = originalSkipPermissions.Bool
	sess.SpecContent = specContent.String
	sess.CreatedAt = time.UnixMilli(createdAtMs)
	sess.UpdatedAt = time.UnixMilli(updatedAtMs)
	if lastActivityMs.Valid {
		t := time.UnixMilli(lastActivityMs.Int64)
		sess.LastActivity = &t
	}
	return sess, nil
}

// GetSessionByID looks up a session by its opaque id.
func (s *Store) GetSessionByID(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSessionRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Session{}, apperrors.NotFound("session not found", nil)
		}
		return Session{}, apperrors.IoFailure("scanning session", err)
	}
	return sess, nil
}

// ListSessions returns every session for a repository, optionally restricted
// to the given statuses. A nil/empty filter returns all statuses.
func (s *Store) ListSessions(ctx context.Context, repositoryPath string, filter StatusFilter) ([]Session, error) {
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE repository_path = ?`
	args := []any{repositoryPath}

	if len(filter) > 0 {
		placeholders := make([]string, len(filter))
		for i, st := range filter {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.IoFailure("listing sessions", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, apperrors.IoFailure("scanning session row", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.IoFailure("iterating sessions", err)
	}
	return out, nil
}

// DeleteSession removes a session row by id. Cascades to git_stats via the
// foreign key.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.withWrite(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return apperrors.IoFailure("deleting session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperrors.IoFailure("checking rows affected", err)
		}
		if n == 0 {
			return apperrors.NotFound("session not found", nil)
		}
		return nil
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTimeMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
