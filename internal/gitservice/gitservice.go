// Package gitservice implements the Git Worktree Service (spec §4.B): default
// branch resolution, branch management, and worktree lifecycle for a single
// repository. Reads that go-git's pure-Go plumbing handles well (HEAD,
// references, commit lookups) use go-git directly; worktree mutation, stash,
// and anything CLI-porcelain-shaped shells out to the git binary, mirroring
// the teacher's hybrid approach to git access.
package gitservice

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// Service operates against one repository, identified by its absolute
// filesystem path (the main working tree's root, not a linked worktree).
type Service struct {
	repositoryPath string
}

// New returns a Service bound to repositoryPath. The path is trusted: the
// caller (Session Manager) is responsible for having resolved it via
// internal/paths.DiscoverRepository.
func New(repositoryPath string) *Service {
	return &Service{repositoryPath: repositoryPath}
}

// RepositoryPath returns the path this service operates against.
func (s *Service) RepositoryPath() string { return s.repositoryPath }

// openRepo opens the repository with go-git for read-only plumbing queries.
func (s *Service) openRepo() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repositoryPath)
	if err != nil {
		return nil, apperrors.IoFailure(fmt.Sprintf("opening repository at %s", s.repositoryPath), err)
	}
	return repo, nil
}

// runGit shells out to the git CLI rooted at the service's repository,
// returning trimmed stdout. Used for worktree/stash/branch operations that
// go-git's porcelain doesn't cover, matching the original implementation's
// own choice to shell out for nearly all of these operations.
func (s *Service) runGit(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", s.repositoryPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		logging.Debug(ctx, "git command failed", "args", fullArgs, "output", trimmed)
		return trimmed, apperrors.ExternalCommandFailure("git", fullArgs, trimmed, err)
	}
	return trimmed, nil
}

// runGitIn is like runGit but rooted at an arbitrary directory (used for
// linked worktrees, which are their own git working directories).
func runGitIn(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		logging.Debug(ctx, "git command failed", "dir", dir, "args", args, "output", trimmed)
		return trimmed, apperrors.ExternalCommandFailure("git", args, trimmed, err)
	}
	return trimmed, nil
}
