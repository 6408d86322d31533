package agentspec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodexBuildLaunchSpec_ResumeWithSessionID(t *testing.T) {
	a := codexAdapter{def: Definition{BinaryName: "codex"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath: "/path/to/worktree",
		SessionID:    "/home/user/.codex/sessions/2026/07/31/rollout.jsonl",
	})
	assert.Equal(t, "cd /path/to/worktree && codex resume /home/user/.codex/sessions/2026/07/31/rollout.jsonl", spec.ShellCommand)
}

func TestCodexBuildLaunchSpec_NewSessionWithPromptAndSkipPermissions(t *testing.T) {
	a := codexAdapter{def: Definition{BinaryName: "codex"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:    "/path/to/worktree",
		InitialPrompt:   "implement feature X",
		SkipPermissions: true,
	})
	assert.Equal(t, `cd /path/to/worktree && codex --dangerously-bypass-approvals-and-sandbox "implement feature X"`, spec.ShellCommand)
}

func TestCodexFindSession_MatchesRecordedCwd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	worktree := filepath.Join(home, "project")
	sessionsDir := filepath.Join(home, ".codex", "sessions", "2026", "07", "31")
	require.NoError(t, os.MkdirAll(sessionsDir, 0o755))

	nonMatching := filepath.Join(sessionsDir, "a.jsonl")
	matching := filepath.Join(sessionsDir, "b.jsonl")
	require.NoError(t, os.WriteFile(nonMatching, []byte(`{"cwd":"/somewhere/else"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(matching, []byte(`{"cwd":"`+worktree+`"}`+"\n"), 0o644))

	a := codexAdapter{def: Definition{BinaryName: "codex"}}
	found, ok := a.FindSession(context.Background(), worktree)
	require.True(t, ok)
	assert.Equal(t, matching, found)
}

func TestCodexFindSession_NoSessionsDirReturnsFalse(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	a := codexAdapter{def: Definition{BinaryName: "codex"}}
	_, ok := a.FindSession(context.Background(), filepath.Join(home, "project"))
	assert.False(t, ok)
}
