package merge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runGitT(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}

func initRepoWithCleanSessionBranch(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	runGitT(t, dir, "init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("base\n"), 0o644))
	runGitT(t, dir, "add", "README.md")
	runGitT(t, dir, "commit", "-q", "-m", "initial")

	runGitT(t, dir, "branch", "schaltwerk/feat-a")
	runGitT(t, dir, "checkout", "-q", "schaltwerk/feat-a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("added by session\n"), 0o644))
	runGitT(t, dir, "add", "feature.txt")
	runGitT(t, dir, "commit", "-q", "-m", "add feature")
	runGitT(t, dir, "checkout", "-q", "main")

	return dir
}

func TestPreviewNoConflict(t *testing.T) {
	dir := initRepoWithCleanSessionBranch(t)
	engine := New(dir)

	preview, err := engine.Preview(context.Background(), "schaltwerk/feat-a", "main", "Add feature")
	require.NoError(t, err)
	require.False(t, preview.HasConflicts)
	require.False(t, preview.IsUpToDate)
	require.Empty(t, preview.ConflictingPaths)
}

func TestSquashMergeAdvancesParentByOneCommit(t *testing.T) {
	dir := initRepoWithCleanSessionBranch(t)
	engine := New(dir)

	before := runGitT(t, dir, "rev-parse", "main")

	outcome, err := engine.Merge(context.Background(), "schaltwerk/feat-a", "main", ModeSquash, "Add feature")
	require.NoError(t, err)
	require.Equal(t, ModeSquash, outcome.Mode)
	require.NotEmpty(t, outcome.NewCommit)

	after := runGitT(t, dir, "rev-parse", "main")
	require.NotEqual(t, before, after)

	parents := runGitT(t, dir, "log", "-1", "--format=%P", "main")
	require.Contains(t, parents, before[:len(before)-1])

	sessionTree := runGitT(t, dir, "rev-parse", "schaltwerk/feat-a^{tree}")
	mainTree := runGitT(t, dir, "rev-parse", "main^{tree}")
	require.Equal(t, sessionTree, mainTree)
}

func TestReapplyMergeCherryPicksEachCommit(t *testing.T) {
	dir := t.TempDir()
	runGitT(t, dir, "init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("base\n"), 0o644))
	runGitT(t, dir, "add", "README.md")
	runGitT(t, dir, "commit", "-q", "-m", "initial")

	runGitT(t, dir, "branch", "schaltwerk/feat-b")
	runGitT(t, dir, "checkout", "-q", "schaltwerk/feat-b")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0o644))
	runGitT(t, dir, "add", "a.txt")
	runGitT(t, dir, "commit", "-q", "-m", "commit one")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b\n"), 0o644))
	runGitT(t, dir, "add", "b.txt")
	runGitT(t, dir, "commit", "-q", "-m", "commit two")
	runGitT(t, dir, "checkout", "-q", "main")

	engine := New(dir)
	outcome, err := engine.Merge(context.Background(), "schaltwerk/feat-b", "main", ModeReapply, "")
	require.NoError(t, err)
	require.Equal(t, ModeReapply, outcome.Mode)

	log := runGitT(t, dir, "log", "--oneline", "main")
	require.Contains(t, log, "commit one")
	require.Contains(t, log, "commit two")
}

func TestReapplyMergeAbortsOnConflict(t *testing.T) {
	dir := t.TempDir()
	runGitT(t, dir, "init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.txt"), []byte("base\n"), 0o644))
	runGitT(t, dir, "add", "shared.txt")
	runGitT(t, dir, "commit", "-q", "-m", "initial")

	runGitT(t, dir, "branch", "schaltwerk/feat-c")
	runGitT(t, dir, "checkout", "-q", "schaltwerk/feat-c")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.txt"), []byte("session change\n"), 0o644))
	runGitT(t, dir, "add", "shared.txt")
	runGitT(t, dir, "commit", "-q", "-m", "session edits shared.txt")
	runGitT(t, dir, "checkout", "-q", "main")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.txt"), []byte("main change\n"), 0o644))
	runGitT(t, dir, "add", "shared.txt")
	runGitT(t, dir, "commit", "-q", "-m", "main edits shared.txt")

	engine := New(dir)

	preview, err := engine.Preview(context.Background(), "schaltwerk/feat-c", "main", "msg")
	require.NoError(t, err)
	require.True(t, preview.HasConflicts)
	require.Contains(t, preview.ConflictingPaths, "shared.txt")

	beforeMain := runGitT(t, dir, "rev-parse", "main")
	_, err = engine.Merge(context.Background(), "schaltwerk/feat-c", "main", ModeReapply, "")
	require.Error(t, err)
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Contains(t, conflictErr.ConflictingPaths, "shared.txt")

	afterMain := runGitT(t, dir, "rev-parse", "main")
	require.Equal(t, beforeMain, afterMain)
}

func TestMergeUnsupportedMode(t *testing.T) {
	dir := initRepoWithCleanSessionBranch(t)
	engine := New(dir)
	_, err := engine.Merge(context.Background(), "schaltwerk/feat-a", "main", Mode("bogus"), "msg")
	require.Error(t, err)
}
