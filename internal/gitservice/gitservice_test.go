package gitservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	return dir
}

func TestRepositoryHasCommits(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	has, err := svc.RepositoryHasCommits(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRepositoryHasCommits_Empty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	svc := New(dir)

	has, err := svc.RepositoryHasCommits(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListBranches(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	_, err := svc.runGit(ctx, "branch", "feature-a")
	require.NoError(t, err)

	branches, err := svc.ListBranches(ctx)
	require.NoError(t, err)
	assert.Contains(t, branches, "feature-a")
	for _, b := range branches {
		assert.NotContains(t, b, "HEAD")
	}
}

func TestBranchExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	_, err := svc.runGit(ctx, "branch", "scratch")
	require.NoError(t, err)

	exists, err := svc.BranchExists(ctx, "scratch")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DeleteBranch(ctx, "scratch", true))

	exists, err = svc.BranchExists(ctx, "scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRenameBranch_FailsWhenTargetExists(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	require.NoError(t, svc.DeleteBranch(ctx, "placeholder", true)) // no-op if absent, tolerated
	_, err := svc.runGit(ctx, "branch", "one")
	require.NoError(t, err)
	_, err = svc.runGit(ctx, "branch", "two")
	require.NoError(t, err)

	err = svc.RenameBranch(ctx, "one", "two")
	require.Error(t, err)
}

func TestCreateAndRemoveWorktree(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	defaultBranch, err := svc.currentBranch(ctx)
	require.NoError(t, err)

	worktreePath := filepath.Join(dir, ".schaltwerk", "worktrees", "feat-a")
	require.NoError(t, svc.CreateWorktreeFromBase(ctx, "schaltwerk/feat-a", worktreePath, defaultBranch))

	assert.DirExists(t, worktreePath)

	exists, err := svc.BranchExists(ctx, "schaltwerk/feat-a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.RemoveWorktree(ctx, worktreePath))
	assert.NoDirExists(t, worktreePath)
}

func TestRemoveWorktree_Idempotent(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	require.NoError(t, svc.RemoveWorktree(ctx, filepath.Join(dir, "nonexistent")))
}

func TestGetDefaultBranch_FallsBackToCurrent(t *testing.T) {
	ctx := context.Background()
	dir := initRepoWithCommit(t)
	svc := New(dir)

	branch, err := svc.GetDefaultBranch(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, branch)
}
