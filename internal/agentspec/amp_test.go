package agentspec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmpBuildLaunchSpec_NewSessionWithPrompt(t *testing.T) {
	a := ampAdapter{def: Definition{BinaryName: "amp"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:    "/path/to/worktree",
		InitialPrompt:   "implement feature X",
		SkipPermissions: true,
	})
	assert.Equal(t, `cd /path/to/worktree && echo "implement feature X" | amp --dangerously-allow-all`, spec.ShellCommand)
}

func TestAmpBuildLaunchSpec_QuotesCwdWithSpaces(t *testing.T) {
	a := ampAdapter{def: Definition{BinaryName: "amp"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{WorktreePath: "/path/with spaces"})
	assert.Equal(t, `cd "/path/with spaces" && amp`, spec.ShellCommand)
}

func TestAmpBuildLaunchSpec_ResumeWithThreadID(t *testing.T) {
	a := ampAdapter{def: Definition{BinaryName: "amp"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath: "/path/to/worktree",
		SessionID:    "T-7bb2c785-d6f5-44a1-80e0-28f11fd997bc",
	})
	assert.Equal(t, "cd /path/to/worktree && amp threads continue T-7bb2c785-d6f5-44a1-80e0-28f11fd997bc", spec.ShellCommand)
}

func TestAmpBuildLaunchSpec_NoPromptNoPermissions(t *testing.T) {
	a := ampAdapter{def: Definition{BinaryName: "amp"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{WorktreePath: "/path/to/worktree"})
	assert.Equal(t, "cd /path/to/worktree && amp", spec.ShellCommand)
}

func TestAmpBuildLaunchSpec_PromptWithQuotes(t *testing.T) {
	a := ampAdapter{def: Definition{BinaryName: "amp"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:  "/path/to/worktree",
		InitialPrompt: `implement "feature" with quotes`,
	})
	assert.Equal(t, `cd /path/to/worktree && echo "implement \"feature\" with quotes" | amp`, spec.ShellCommand)
}

func TestFindNewestAmpThread_PicksMostRecentlyModified(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	threadsDir := filepath.Join(home, ".local", "share", "amp", "threads")
	require.NoError(t, os.MkdirAll(threadsDir, 0o755))

	older := filepath.Join(threadsDir, "T-older.json")
	newer := filepath.Join(threadsDir, "T-newer.json")
	require.NoError(t, os.WriteFile(older, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("{}"), 0o644))

	now := time.Now()
	olderTime := now.Add(-2 * time.Hour)
	newerTime := now.Add(-1 * time.Hour)
	require.NoError(t, os.Chtimes(older, olderTime, olderTime))
	require.NoError(t, os.Chtimes(newer, newerTime, newerTime))

	id, ok := findNewestAmpThread()
	require.True(t, ok)
	assert.Equal(t, "T-newer", id)
}

func TestFindNewestAmpThread_IgnoresNonMatchingFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	threadsDir := filepath.Join(home, ".local", "share", "amp", "threads")
	require.NoError(t, os.MkdirAll(threadsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(threadsDir, "ignored.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(threadsDir, "T-also-ignored.txt"), []byte("x"), 0o644))

	_, ok := findNewestAmpThread()
	assert.False(t, ok)
}

func TestListExistingAmpThreads_SortedIDs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	threadsDir := filepath.Join(home, ".local", "share", "amp", "threads")
	require.NoError(t, os.MkdirAll(threadsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(threadsDir, "T-b.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(threadsDir, "T-a.json"), []byte("{}"), 0o644))

	ids := listExistingAmpThreads()
	require.Len(t, ids, 2)
	assert.True(t, strings.HasPrefix(ids[0], "T-a"))
}
