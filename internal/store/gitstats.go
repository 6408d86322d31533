package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
)

// SaveGitStats upserts a session's git-stats snapshot.
func (s *Store) SaveGitStats(ctx context.Context, stats GitStats) error {
	return s.withWrite(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO git_stats (session_id, files_changed, lines_added, lines_removed, has_uncommitted, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				files_changed = excluded.files_changed,
				lines_added = excluded.lines_added,
				lines_removed = excluded.lines_removed,
				has_uncommitted = excluded.has_uncommitted,
				calculated_at = excluded.calculated_at`,
			stats.SessionID, stats.FilesChanged, stats.LinesAdded, stats.LinesRemoved,
			stats.HasUncommitted, stats.CalculatedAt.UnixMilli(),
		)
		if err != nil {
			return apperrors.IoFailure("saving git stats", err)
		}
		return nil
	})
}

// GetGitStats returns the most recent snapshot for a session, if any.
func (s *Store) GetGitStats(ctx context.Context, sessionID string) (GitStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, files_changed, lines_added, lines_removed, has_uncommitted, calculated_at
		FROM git_stats WHERE session_id = ?`, sessionID)

	var stats GitStats
	var calculatedAtMs int64
	err := row.Scan(&stats.SessionID, &stats.FilesChanged, &stats.LinesAdded, &stats.LinesRemoved,
		&stats.HasUncommitted, &calculatedAtMs)
	if err != nil {
		if err == sql.ErrNoRows {
			return GitStats{}, apperrors.NotFound("no git stats recorded for session", nil)
		}
		return GitStats{}, apperrors.IoFailure("scanning git stats", err)
	}
	stats.CalculatedAt = time.UnixMilli(calculatedAtMs)
	return stats, nil
}

// ShouldUpdateStats reports whether a session's git stats are missing or
// older than GitStatsTTL, per spec §4.A.
func (s *Store) ShouldUpdateStats(ctx context.Context, sessionID string) (bool, error) {
	stats, err := s.GetGitStats(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return true, nil
		}
		return false, err
	}
	return time.Since(stats.CalculatedAt) > GitStatsTTL, nil
}
