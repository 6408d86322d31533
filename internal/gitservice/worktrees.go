package gitservice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// CreateWorktreeFromBase resolves baseBranch to a commit, deletes any
// pre-existing local branch named branch, creates branch pointing at that
// commit, and materializes a worktree at worktreePath checked out on it. The
// caller guarantees worktreePath does not already exist.
func (s *Service) CreateWorktreeFromBase(ctx context.Context, branch, worktreePath, baseBranch string) error {
	baseCommit, err := s.runGit(ctx, "rev-parse", baseBranch)
	if err != nil {
		return apperrors.UserInput(fmt.Sprintf("base branch %q does not exist in the repository", baseBranch), err)
	}

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o750); err != nil {
		return apperrors.IoFailure("creating worktree parent directory", err)
	}

	if exists, _ := s.BranchExists(ctx, branch); exists {
		logging.Debug(ctx, "deleting pre-existing branch before worktree creation", "branch", branch)
		if _, err := s.runGit(ctx, "branch", "-D", branch); err != nil {
			return err
		}
	}

	if _, err := s.runGit(ctx, "worktree", "add", "-b", branch, worktreePath, baseCommit); err != nil {
		return apperrors.IoFailure(fmt.Sprintf("creating worktree at %s", worktreePath), err)
	}

	logging.Info(ctx, "worktree created", "path", worktreePath, "branch", branch, "base", baseBranch)
	return nil
}

// RemoveWorktree removes a worktree, tolerating the case where it's not a
// valid working tree (already-deleted directory, stale registration).
// Idempotent: removing an already-absent worktree is not an error.
func (s *Service) RemoveWorktree(ctx context.Context, worktreePath string) error {
	_, err := s.runGit(ctx, "worktree", "remove", "--force", worktreePath)
	if err != nil {
		logging.Debug(ctx, "git worktree remove failed, falling back to rmdir", "path", worktreePath, "err", err)
		if rmErr := os.RemoveAll(worktreePath); rmErr != nil && !os.IsNotExist(rmErr) {
			return apperrors.IoFailure("removing worktree directory", rmErr)
		}
		// The worktree's metadata may still be registered even though the
		// directory is gone; prune clears that without failing the caller.
		_, _ = s.runGit(ctx, "worktree", "prune")
	}
	return nil
}

// ListWorktrees returns every worktree path registered against the
// repository, including the main working tree.
func (s *Service) ListWorktrees(ctx context.Context) ([]string, error) {
	out, err := s.runGit(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if p, ok := strings.CutPrefix(line, "worktree "); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// PruneWorktrees removes administrative files for worktrees whose working
// directories no longer exist.
func (s *Service) PruneWorktrees(ctx context.Context) error {
	_, err := s.runGit(ctx, "worktree", "prune")
	return err
}

// UpdateWorktreeBranch switches a worktree to new_branch, auto-stashing any
// uncommitted changes under a tag identifying the session (derived from the
// worktree's directory name), and attempting to restore only that stash
// afterward. Stash restore failure is non-fatal: the stash is left in place
// for manual recovery and the branch switch still succeeds.
func (s *Service) UpdateWorktreeBranch(ctx context.Context, worktreePath, newBranch string) error {
	sessionTag := filepath.Base(worktreePath)
	stashMessage := fmt.Sprintf("Auto-stash before branch rename [session:%s]", sessionTag)

	status, err := runGitIn(ctx, worktreePath, "status", "--porcelain")
	if err != nil {
		return err
	}
	stashed := false
	if status != "" {
		if _, err := runGitIn(ctx, worktreePath, "stash", "push", "-u", "-m", stashMessage); err != nil {
			logging.Warn(ctx, "failed to stash changes before branch switch, proceeding anyway", "worktree", worktreePath, "err", err)
		} else {
			stashed = true
		}
	}

	if _, err := runGitIn(ctx, worktreePath, "checkout", "-f", newBranch); err != nil {
		return apperrors.IoFailure(fmt.Sprintf("checking out %s in worktree", newBranch), err)
	}

	if stashed {
		s.restoreSessionStash(ctx, worktreePath, stashMessage)
	}
	return nil
}

// restoreSessionStash finds the stash entry matching message and applies it,
// dropping it on success. Any failure is logged and the stash is left intact.
func (s *Service) restoreSessionStash(ctx context.Context, worktreePath, message string) {
	list, err := runGitIn(ctx, worktreePath, "stash", "list")
	if err != nil {
		logging.Warn(ctx, "failed to list stashes for restore", "worktree", worktreePath, "err", err)
		return
	}

	var ref string
	for _, line := range strings.Split(list, "\n") {
		if strings.Contains(line, message) {
			if idx := strings.Index(line, ":"); idx > 0 {
				ref = line[:idx]
			}
			break
		}
	}
	if ref == "" {
		logging.Warn(ctx, "session-tagged stash not found after checkout, leaving stash list untouched", "worktree", worktreePath)
		return
	}

	if _, err := runGitIn(ctx, worktreePath, "stash", "apply", ref); err != nil {
		logging.Warn(ctx, "failed to restore session-specific stash, it remains in stash", "worktree", worktreePath, "ref", ref, "err", err)
		return
	}
	if _, err := runGitIn(ctx, worktreePath, "stash", "drop", ref); err != nil {
		logging.Warn(ctx, "failed to drop restored stash", "worktree", worktreePath, "ref", ref, "err", err)
	}
}

// WorktreeSize returns the total size in bytes of a worktree's working
// directory, excluding .git. Used by the Session Manager's worktree-size
// cache (spec §4.F supplemented feature).
func WorktreeSize(worktreePath string) (int64, error) {
	var total int64
	err := filepath.WalkDir(worktreePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort size; unreadable entries are skipped
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.IoFailure("walking worktree", err)
	}
	return total, nil
}
