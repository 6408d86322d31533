package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
)

// migration is one forward-only, idempotent schema step. Applying the full
// list to a fresh database and to an already-migrated one both leave the
// schema in the same state; migrate() tracks which versions have already run
// in schema_migrations so re-applying a version is a no-op rather than
// relying on "IF NOT EXISTS"/duplicate-column tolerance everywhere.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				display_name TEXT,
				version_group_id TEXT,
				version_number INTEGER,
				repository_path TEXT NOT NULL,
				repository_name TEXT NOT NULL,
				branch TEXT NOT NULL,
				parent_branch TEXT NOT NULL,
				worktree_path TEXT NOT NULL,
				status TEXT NOT NULL,
				session_state TEXT NOT NULL DEFAULT 'running',
				ready_to_merge BOOLEAN NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				last_activity INTEGER,
				initial_prompt TEXT,
				original_agent_type TEXT,
				original_skip_permissions BOOLEAN,
				pending_name_generation BOOLEAN NOT NULL DEFAULT 0,
				was_auto_generated BOOLEAN NOT NULL DEFAULT 0,
				spec_content TEXT,
				resume_allowed BOOLEAN NOT NULL DEFAULT 1,
				UNIQUE(repository_path, name)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_repo ON sessions(repository_path)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(last_activity)`,
			`CREATE TABLE IF NOT EXISTS git_stats (
				session_id TEXT PRIMARY KEY,
				files_changed INTEGER NOT NULL,
				lines_added INTEGER NOT NULL,
				lines_removed INTEGER NOT NULL,
				has_uncommitted BOOLEAN NOT NULL,
				calculated_at INTEGER NOT NULL,
				FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS app_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				skip_permissions BOOLEAN NOT NULL DEFAULT 0,
				agent_type TEXT NOT NULL DEFAULT 'claude',
				default_open_app TEXT NOT NULL DEFAULT 'finder',
				default_base_branch TEXT,
				terminal_font_size INTEGER NOT NULL DEFAULT 13,
				ui_font_size INTEGER NOT NULL DEFAULT 12,
				archive_max_entries INTEGER NOT NULL DEFAULT 50,
				tutorial_completed BOOLEAN NOT NULL DEFAULT 0
			)`,
			`INSERT OR IGNORE INTO app_config (id) VALUES (1)`,
			`CREATE TABLE IF NOT EXISTS project_config (
				repository_path TEXT PRIMARY KEY,
				setup_script TEXT,
				last_selection_kind TEXT,
				last_selection_payload TEXT,
				sessions_filter_mode TEXT NOT NULL DEFAULT 'all',
				sessions_sort_mode TEXT NOT NULL DEFAULT 'name',
				environment_variables TEXT,
				action_buttons TEXT,
				run_script TEXT,
				github_repository TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS agent_binaries (
				agent_name TEXT PRIMARY KEY,
				custom_path TEXT,
				auto_detect BOOLEAN NOT NULL DEFAULT 1,
				detected_binaries_json TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS archived_specs (
				id TEXT PRIMARY KEY,
				session_name TEXT NOT NULL,
				repository_path TEXT NOT NULL,
				repository_name TEXT NOT NULL,
				content TEXT NOT NULL,
				archived_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_archived_specs_repo ON archived_specs(repository_path)`,
			`CREATE INDEX IF NOT EXISTS idx_archived_specs_archived_at ON archived_specs(archived_at)`,
		},
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return apperrors.IoFailure("creating schema_migrations table", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return apperrors.IoFailure("reading schema_migrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return apperrors.IoFailure("scanning schema_migrations", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.IoFailure("beginning migration transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return apperrors.IoFailure(fmt.Sprintf("applying migration statement: %s", stmt), err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s','now'))`,
		m.version, m.name,
	); err != nil {
		return apperrors.IoFailure("recording migration version", err)
	}
	return tx.Commit()
}

// execOrNotFound converts sql.ErrNoRows into an apperrors.NotFound error with
// the given message, otherwise passes other errors through as Io failures.
func wrapScanErr(err error, notFoundMsg string) error {
	if err == sql.ErrNoRows {
		return apperrors.NotFound(notFoundMsg, nil)
	}
	return apperrors.IoFailure("querying store", err)
}
