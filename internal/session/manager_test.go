package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaltwerk/schaltwerk/internal/events"
	"github.com/schaltwerk/schaltwerk/internal/gitservice"
	"github.com/schaltwerk/schaltwerk/internal/ptyhost"
	"github.com/schaltwerk/schaltwerk/internal/store"
	"github.com/schaltwerk/schaltwerk/internal/terminal"
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

func newTestManager(t *testing.T, repoPath string) *Manager {
	t.Helper()
	st := newTestStore(t)
	git := gitservice.New(repoPath)
	terminals := terminal.NewManager(ptyhost.New(nil))
	bus := events.New()
	return New(st, git, terminals, bus, nil, "proj-1", repoPath)
}

func TestManager_CreateSpec_NoFilesystemEffects(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSpec(ctx, "my-spec", "do the thing")
	require.NoError(t, err)
	assert.Equal(t, store.StateSpec, sess.SessionState)
	assert.Equal(t, "do the thing", sess.SpecContent)

	_, statErr := os.Stat(sess.WorktreePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_CreateSpec_DuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	_, err := m.CreateSpec(ctx, "my-spec", "first")
	require.NoError(t, err)

	_, err = m.CreateSpec(ctx, "my-spec", "second")
	require.Error(t, err)
}

func TestManager_CreateSession_CreatesWorktree(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "feature-x"})
	require.NoError(t, err)
	assert.Equal(t, "feature-x", sess.Name)
	assert.Equal(t, store.StateRunning, sess.SessionState)

	info, err := os.Stat(sess.WorktreePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestManager_StartSpecSession_MaterializesWorktree(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	spec, err := m.CreateSpec(ctx, "my-spec", "plan")
	require.NoError(t, err)

	sess, err := m.StartSpecSession(ctx, spec.Name, "", "claude", false)
	require.NoError(t, err)
	assert.Equal(t, store.StateRunning, sess.SessionState)

	info, err := os.Stat(sess.WorktreePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestManager_MarkReviewed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "feature-x"})
	require.NoError(t, err)

	first, err := m.MarkReviewed(ctx, sess.Name)
	require.NoError(t, err)
	assert.True(t, first.ReadyToMerge)

	second, err := m.MarkReviewed(ctx, sess.Name)
	require.NoError(t, err)
	assert.True(t, second.ReadyToMerge)
}

func TestManager_CancelSession_SpecArchivesContent(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSpec(ctx, "my-spec", "archive me")
	require.NoError(t, err)

	require.NoError(t, m.CancelSession(ctx, sess.Name))

	_, err = m.store.GetSessionByName(ctx, repo, sess.Name)
	assert.Error(t, err)

	archived, err := m.store.ListArchivedSpecs(ctx, repo)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "archive me", archived[0].Content)
}

func TestManager_CancelSession_RunningRemovesWorktree(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "feature-x"})
	require.NoError(t, err)

	require.NoError(t, m.CancelSession(ctx, sess.Name))

	_, statErr := os.Stat(sess.WorktreePath)
	assert.True(t, os.IsNotExist(statErr))

	_, err = m.store.GetSessionByName(ctx, repo, sess.Name)
	assert.Error(t, err)
}

func TestManager_ListSessions_ReviewedSegregatedToEnd(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	a, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "aaa"})
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, CreateSessionParams{RequestedName: "bbb"})
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, CreateSessionParams{RequestedName: "ccc"})
	require.NoError(t, err)

	_, err = m.MarkReviewed(ctx, a.Name)
	require.NoError(t, err)

	sessions, err := m.ListSessions(ctx, FilterAll, SortName)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.Equal(t, "bbb", sessions[0].Name)
	assert.Equal(t, "ccc", sessions[1].Name)
	assert.Equal(t, "aaa", sessions[2].Name)
}

func TestManager_ListSessions_FilterRunningExcludesSpecsAndReviewed(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	running, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "running-one"})
	require.NoError(t, err)
	_, err = m.CreateSpec(ctx, "a-spec", "plan")
	require.NoError(t, err)
	reviewed, err := m.CreateSession(ctx, CreateSessionParams{RequestedName: "reviewed-one"})
	require.NoError(t, err)
	_, err = m.MarkReviewed(ctx, reviewed.Name)
	require.NoError(t, err)

	sessions, err := m.ListSessions(ctx, FilterRunning, SortName)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, running.Name, sessions[0].Name)
}

func TestManager_SpecContentCache_ReflectsWrites(t *testing.T) {
	ctx := context.Background()
	repo := initRepoWithCommit(t)
	m := newTestManager(t, repo)

	sess, err := m.CreateSpec(ctx, "my-spec", "v1")
	require.NoError(t, err)

	content, err := m.GetSpecContent(ctx, sess.Name)
	require.NoError(t, err)
	assert.Equal(t, "v1", content)

	require.NoError(t, m.SetSpecContent(ctx, sess.Name, "v2"))

	content, err = m.GetSpecContent(ctx, sess.Name)
	require.NoError(t, err)
	assert.Equal(t, "v2", content)
}
