package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/jsonutil"
)

func unmarshalJSON(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// GetAppConfig returns the single global configuration row.
func (s *Store) GetAppConfig(ctx context.Context) (AppConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT skip_permissions, agent_type, default_open_app, default_base_branch,
			terminal_font_size, ui_font_size, archive_max_entries, tutorial_completed
		FROM app_config WHERE id = 1`)

	var cfg AppConfig
	var defaultBaseBranch sql.NullString
	if err := row.Scan(&cfg.SkipPermissions, &cfg.AgentType, &cfg.DefaultOpenApp, &defaultBaseBranch,
		&cfg.TerminalFontSize, &cfg.UIFontSize, &cfg.ArchiveMaxEntries, &cfg.TutorialCompleted); err != nil {
		return AppConfig{}, apperrors.IoFailure("reading app config", err)
	}
	cfg.DefaultBaseBranch = defaultBaseBranch.String
	return cfg, nil
}

// SetAppConfig overwrites the single global configuration row.
func (s *Store) SetAppConfig(ctx context.Context, cfg AppConfig) error {
	return s.withWrite(func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE app_config SET
				skip_permissions = ?, agent_type = ?, default_open_app = ?, default_base_branch = ?,
				terminal_font_size = ?, ui_font_size = ?, archive_max_entries = ?, tutorial_completed = ?
			WHERE id = 1`,
			cfg.SkipPermissions, cfg.AgentType, cfg.DefaultOpenApp, nullableString(cfg.DefaultBaseBranch),
			cfg.TerminalFontSize, cfg.UIFontSize, cfg.ArchiveMaxEntries, cfg.TutorialCompleted,
		)
		if err != nil {
			return apperrors.IoFailure("writing app config", err)
		}
		return nil
	})
}

// GetProjectConfig returns a repository's configuration, creating a
// zero-valued row on first access.
func (s *Store) GetProjectConfig(ctx context.Context, repositoryPath string) (ProjectConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT repository_path, setup_script, last_selection_kind, last_selection_payload,
			sessions_filter_mode, sessions_sort_mode, environment_variables, action_buttons,
			run_script, github_repository, created_at, updated_at
		FROM project_config WHERE repository_path = ?`, repositoryPath)

	var cfg ProjectConfig
	var setupScript, lastSelectionKind, lastSelectionPayload, envJSON, actionButtons, runScript, githubRepo sql.NullString
	var createdAtMs, updatedAtMs int64

	err := row.Scan(&cfg.RepositoryPath, &setupScript, &lastSelectionKind, &lastSelectionPayload,
		&cfg.SessionsFilterMode, &cfg.SessionsSortMode, &envJSON, &actionButtons, &runScript, &githubRepo,
		&createdAtMs, &updatedAtMs)
	if err == sql.ErrNoRows {
		return ProjectConfig{RepositoryPath: repositoryPath, SessionsFilterMode: "all", SessionsSortMode: "name"}, nil
	}
	if err != nil {
		return ProjectConfig{}, apperrors.IoFailure("reading project config", err)
	}

	cfg.SetupScript = setupScript.String
	cfg.LastSelectionKind = SelectionKind(lastSelectionKind.String)
	cfg.LastSelectionPayload = lastSelectionPayload.String
	cfg.ActionButtons = actionButtons.String
	cfg.RunScript = runScript.String
	cfg.GitHubRepository = githubRepo.String
	cfg.CreatedAt = time.UnixMilli(createdAtMs)
	cfg.UpdatedAt = time.UnixMilli(updatedAtMs)
	if envJSON.Valid && envJSON.String != "" {
		var env map[string]string
		if jsonErr := unmarshalJSON(envJSON.String, &env); jsonErr == nil {
			cfg.EnvironmentVariables = env
		}
	}
	return cfg, nil
}

// SetProjectConfig upserts a repository's configuration row.
func (s *Store) SetProjectConfig(ctx context.Context, cfg ProjectConfig) error {
	return s.withWrite(func() error {
		var envJSON []byte
		if cfg.EnvironmentVariables != nil {
			encoded, err := jsonutil.MarshalCompact(cfg.EnvironmentVariables)
			if err != nil {
				return apperrors.IoFailure("encoding environment variables", err)
			}
			envJSON = encoded
		}

		now := time.Now().UnixMilli()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO project_config (
				repository_path, setup_script, last_selection_kind, last_selection_payload,
				sessions_filter_mode, sessions_sort_mode, environment_variables, action_buttons,
				run_script, github_repository, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(repository_path) DO UPDATE SET
				setup_script = excluded.setup_script,
				last_selection_kind = excluded.last_selection_kind,
				last_selection_payload = excluded.last_selection_payload,
				sessions_filter_mode = excluded.sessions_filter_mode,
				sessions_sort_mode = excluded.sessions_sort_mode,
				environment_variables = excluded.environment_variables,
				action_buttons = excluded.action_buttons,
				run_script = excluded.run_script,
				github_repository = excluded.github_repository,
				updated_at = excluded.updated_at`,
			cfg.RepositoryPath, nullableString(cfg.SetupScript), nullableString(string(cfg.LastSelectionKind)),
			nullableString(cfg.LastSelectionPayload), cfg.SessionsFilterMode, cfg.SessionsSortMode,
			nullableBytes(envJSON), nullableString(cfg.ActionButtons), nullableString(cfg.RunScript),
			nullableString(cfg.GitHubRepository), now, now,
		)
		if err != nil {
			return apperrors.IoFailure("writing project config", err)
		}
		return nil
	})
}

// GetAgentBinaryConfig returns an agent's binary discovery configuration.
func (s *Store) GetAgentBinaryConfig(ctx context.Context, agentName string) (AgentBinaryConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT agent_name, custom_path, auto_detect, detected_binaries_json, created_at, updated_at
		FROM agent_binaries WHERE agent_name = ?`, agentName)

	var cfg AgentBinaryConfig
	var customPath, detectedJSON sql.NullString
	var createdAtMs, updatedAtMs int64
	err := row.Scan(&cfg.AgentName, &customPath, &cfg.AutoDetect, &detectedJSON, &createdAtMs, &updatedAtMs)
	if err == sql.ErrNoRows {
		return AgentBinaryConfig{AgentName: agentName, AutoDetect: true}, nil
	}
	if err != nil {
		return AgentBinaryConfig{}, apperrors.IoFailure("reading agent binary config", err)
	}
	cfg.CustomPath = customPath.String
	cfg.CreatedAt = time.UnixMilli(createdAtMs)
	cfg.UpdatedAt = time.UnixMilli(updatedAtMs)
	if detectedJSON.Valid && detectedJSON.String != "" {
		var bins []string
		if jsonErr := unmarshalJSON(detectedJSON.String, &bins); jsonErr == nil {
			cfg.DetectedBinaries = bins
		}
	}
	return cfg, nil
}

// SetAgentBinaryConfig upserts an agent's binary discovery configuration.
func (s *Store) SetAgentBinaryConfig(ctx context.Context, cfg AgentBinaryConfig) error {
	return s.withWrite(func() error {
		detectedJSON, err := jsonutil.MarshalCompact(cfg.DetectedBinaries)
		if err != nil {
			return apperrors.IoFailure("encoding detected binaries", err)
		}
		now := time.Now().UnixMilli()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO agent_binaries (agent_name, custom_path, auto_detect, detected_binaries_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(agent_name) DO UPDATE SET
				custom_path = excluded.custom_path,
				auto_detect = excluded.auto_detect,
				detected_binaries_json = excluded.detected_binaries_json,
				updated_at = excluded.updated_at`,
			cfg.AgentName, nullableString(cfg.CustomPath), cfg.AutoDetect, nullableBytes(detectedJSON), now, now,
		)
		if err != nil {
			return apperrors.IoFailure("writing agent binary config", err)
		}
		return nil
	})
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
