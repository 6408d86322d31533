package session

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/store"
)

// computeGitStats diffs worktreePath's HEAD against its merge-base with
// parentBranch (run from the repository's main working tree, since the
// parent branch's tip may not exist inside the linked worktree itself) via
// `git diff --numstat`, and checks `git status --porcelain` inside the
// worktree for uncommitted changes. Grounded on
// original_source/.../domains/git/db_git_stats.rs's save/get contract and
// para_core/git/repository.rs's diff-against-merge-base convention.
func computeGitStats(ctx context.Context, sessionID, repositoryPath, worktreePath, parentBranch string) (store.GitStats, error) {
	mergeBase, err := runGitIn(ctx, repositoryPath, "merge-base", parentBranch, "HEAD")
	if err != nil {
		mergeBaseInWorktree, wErr := runGitIn(ctx, worktreePath, "merge-base", parentBranch, "HEAD")
		if wErr != nil {
			return store.GitStats{}, apperrors.IoFailure("resolving merge base for git stats", wErr)
		}
		mergeBase = mergeBaseInWorktree
	}

	numstat, err := runGitIn(ctx, worktreePath, "diff", "--numstat", mergeBase, "HEAD")
	if err != nil {
		return store.GitStats{}, apperrors.IoFailure("computing git diff stats", err)
	}

	filesChanged, linesAdded, linesRemoved := parseNumstat(numstat)

	status, err := runGitIn(ctx, worktreePath, "status", "--porcelain")
	if err != nil {
		return store.GitStats{}, apperrors.IoFailure("checking worktree status", err)
	}

	return store.GitStats{
		SessionID:      sessionID,
		FilesChanged:   filesChanged,
		LinesAdded:     linesAdded,
		LinesRemoved:   linesRemoved,
		HasUncommitted: strings.TrimSpace(status) != "",
		CalculatedAt:   time.Now(),
	}, nil
}

// parseNumstat sums the added/removed columns of `git diff --numstat`
// output, counting binary files (reported as "-\t-\tpath") toward
// filesChanged without contributing to the line counts.
func parseNumstat(out string) (filesChanged, linesAdded, linesRemoved int) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 3 {
			continue
		}
		filesChanged++
		if added, err := strconv.Atoi(fields[0]); err == nil {
			linesAdded += added
		}
		if removed, err := strconv.Atoi(fields[1]); err == nil {
			linesRemoved += removed
		}
	}
	return filesChanged, linesAdded, linesRemoved
}

func runGitIn(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, apperrors.ExternalCommandFailure("git", args, trimmed, err)
	}
	return trimmed, nil
}
