package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReserveUniqueName_RequestedNameFree(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	name, branch, worktreePath, release, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "feature-x", name)
	assert.Contains(t, branch, "feature-x")
	assert.Contains(t, worktreePath, "feature-x")
}

func TestReserveUniqueName_FallsBackWhenReserved(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	name1, _, _, release1, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	defer release1()

	name2, _, _, release2, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	defer release2()

	assert.Equal(t, "feature-x", name1)
	assert.NotEqual(t, name1, name2)
	assert.Contains(t, name2, "feature-x-")
}

func TestReserveUniqueName_ReleaseFreesNameForReuse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	name1, _, _, release1, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	assert.Equal(t, "feature-x", name1)
	release1()

	name2, _, _, release2, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	defer release2()
	assert.Equal(t, "feature-x", name2)
}

func TestReserveUniqueName_SkipsNameWithExistingDBRow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.CreateSession(ctx, store.Session{
		ID:             "sess-1",
		Name:           "feature-x",
		RepositoryPath: "/repo",
		RepositoryName: "repo",
		Branch:         "schaltwerk/feature-x",
		ParentBranch:   "main",
		WorktreePath:   "/repo/.schaltwerk/worktrees/feature-x",
		Status:         store.StatusActive,
		SessionState:   store.StateRunning,
	}))

	name, _, _, release, err := reserveUniqueName(ctx, st, "/repo", "feature-x")
	require.NoError(t, err)
	defer release()
	assert.NotEqual(t, "feature-x", name)
}

func TestReserveUniqueName_DifferentRepositoriesDoNotContend(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	name1, _, _, release1, err := reserveUniqueName(ctx, st, "/repo-a", "feature-x")
	require.NoError(t, err)
	defer release1()

	name2, _, _, release2, err := reserveUniqueName(ctx, st, "/repo-b", "feature-x")
	require.NoError(t, err)
	defer release2()

	assert.Equal(t, "feature-x", name1)
	assert.Equal(t, "feature-x", name2)
}

func TestReserveUniqueName_FailsAfterExhaustingAllSuffixes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := reservationsFor("/repo-exhausted")

	r.mu.Lock()
	r.names["feature-x"] = struct{}{}
	for a := byte('a'); a <= 'z'; a++ {
		for b := byte('a'); b <= 'z'; b++ {
			r.names[fmt.Sprintf("feature-x-%c%c", a, b)] = struct{}{}
		}
	}
	for i := 1; i <= counterSuffixAttempts; i++ {
		r.names[fmt.Sprintf("feature-x-%d", i)] = struct{}{}
	}
	r.mu.Unlock()

	_, _, _, _, err := reserveUniqueName(ctx, st, "/repo-exhausted", "feature-x")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}
