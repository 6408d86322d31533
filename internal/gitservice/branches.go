package gitservice

import (
	"context"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
)

// RepositoryHasCommits reports whether the repository has at least one
// commit reachable from any ref.
func (s *Service) RepositoryHasCommits(ctx context.Context) (bool, error) {
	out, err := s.runGit(ctx, "rev-list", "-n", "1", "--all")
	if err != nil {
		// A fresh repository with no commits exits non-zero here; treat any
		// failure to produce output as "no commits" rather than propagating.
		return false, nil
	}
	return out != "", nil
}

// GetUnbornHeadBranch returns the branch name HEAD points at before any
// commit exists, parsed from the symbolic ref.
func (s *Service) GetUnbornHeadBranch(ctx context.Context) (string, error) {
	out, err := s.runGit(ctx, "symbolic-ref", "HEAD")
	if err != nil {
		return "", apperrors.InvariantViolation("HEAD is not a symbolic ref", err)
	}
	branch := strings.TrimPrefix(out, "refs/heads/")
	if branch == out {
		return "", apperrors.InvariantViolation("HEAD symbolic ref is not a branch: "+out, nil)
	}
	return branch, nil
}

// GetDefaultBranch resolves the repository's conventional default branch:
// the remote origin's symbolic HEAD, falling back to the current branch,
// then the first local branch, then the unborn HEAD branch name.
func (s *Service) GetDefaultBranch(ctx context.Context) (string, error) {
	if out, err := s.runGit(ctx, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		if branch := strings.TrimPrefix(out, "refs/remotes/origin/"); branch != out {
			return branch, nil
		}
	} else {
		// origin/HEAD isn't set locally; try to have git derive it before
		// giving up on the remote-tracking path entirely.
		if _, setErr := s.runGit(ctx, "remote", "set-head", "origin", "--auto"); setErr == nil {
			if out, err := s.runGit(ctx, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
				if branch := strings.TrimPrefix(out, "refs/remotes/origin/"); branch != out {
					return branch, nil
				}
			}
		}
	}

	if current, err := s.currentBranch(ctx); err == nil && current != "" {
		return current, nil
	}

	out, err := s.runGit(ctx, "branch", "--list", "--format=%(refname:short)")
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				return line, nil
			}
		}
	}

	if branch, err := s.GetUnbornHeadBranch(ctx); err == nil {
		return branch, nil
	}

	return "", apperrors.NotFound("no branches found in repository", nil)
}

func (s *Service) currentBranch(ctx context.Context) (string, error) {
	out, err := s.runGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", apperrors.InvariantViolation("repository is in detached HEAD state", nil)
	}
	return out, nil
}

// ListBranches returns the union of local and remote-tracking branch names,
// "origin/" stripped, deduplicated and sorted, with HEAD pseudorefs omitted.
// For a repository with no commits, returns the single unborn HEAD branch.
func (s *Service) ListBranches(ctx context.Context) ([]string, error) {
	hasCommits, err := s.RepositoryHasCommits(ctx)
	if err != nil {
		return nil, err
	}
	if !hasCommits {
		branch, err := s.GetUnbornHeadBranch(ctx)
		if err != nil {
			return nil, nil
		}
		return []string{branch}, nil
	}

	out, err := s.runGit(ctx, "branch", "-a", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "HEAD") {
			continue
		}
		line = strings.TrimPrefix(line, "origin/")
		if !seen[line] {
			seen[line] = true
			branches = append(branches, line)
		}
	}
	sort.Strings(branches)
	return branches, nil
}

// BranchExists reports whether a local branch exists.
func (s *Service) BranchExists(ctx context.Context, branch string) (bool, error) {
	repo, err := s.openRepo()
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	return err == nil, nil
}

// DeleteBranch force-deletes a local branch.
func (s *Service) DeleteBranch(ctx context.Context, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := s.runGit(ctx, "branch", flag, branch)
	return err
}

// RenameBranch renames a local branch. Fails if old doesn't exist or new
// already does.
func (s *Service) RenameBranch(ctx context.Context, oldName, newName string) error {
	exists, err := s.BranchExists(ctx, oldName)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("branch '"+oldName+"' does not exist", nil)
	}
	newExists, err := s.BranchExists(ctx, newName)
	if err != nil {
		return err
	}
	if newExists {
		return apperrors.Conflict("branch '"+newName+"' already exists", nil)
	}
	_, err = s.runGit(ctx, "branch", "-m", oldName, newName)
	return err
}
